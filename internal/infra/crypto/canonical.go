package crypto

import "mintgate/internal/domain"

const wordSize = 32

// Canonicalize encodes (requester, slot, resource) as the ABI tuple
// (address, uint256, address) and hashes it with keccak256. The on-chain
// verifier recomputes the same 96 bytes.
func Canonicalize(requester domain.Address, slot domain.Slot, resource domain.Address) domain.CanonicalMessage {
	msg := make([]byte, 3*wordSize)
	copy(msg[wordSize-domain.AddressLength:wordSize], requester[:])
	word := slot.Bytes32()
	copy(msg[wordSize:2*wordSize], word[:])
	copy(msg[3*wordSize-domain.AddressLength:], resource[:])
	return domain.CanonicalMessage{
		Bytes: msg,
		Hash:  Keccak256(msg),
	}
}

const personalMessagePrefix = "\x19Ethereum Signed Message:\n32"

// PersonalMessageHash is the EIP-191 digest of the raw 32 hash bytes, which is
// what a personal-sign over the arrayified hash produces.
func PersonalMessageHash(hash domain.Hash) domain.Hash {
	return Keccak256([]byte(personalMessagePrefix), hash[:])
}
