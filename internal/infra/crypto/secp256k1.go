package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"mintgate/internal/domain"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	recoveryOffset = 27
	compactSigLen  = 65
)

func ParsePrivateKey(raw []byte) (*secp256k1.PrivateKey, error) {
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, errors.New("invalid secp256k1 private key length")
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, errors.New("invalid secp256k1 private key")
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

func ParsePrivateKeyHex(value string) (*secp256k1.PrivateKey, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if value == "" {
		return nil, errors.New("private key is required")
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, errors.New("invalid private key encoding")
	}
	return ParsePrivateKey(raw)
}

func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PubKeyAddress derives the account identifier: the last 20 bytes of the
// keccak256 of the uncompressed public key without its 0x04 prefix.
func PubKeyAddress(pub *secp256k1.PublicKey) domain.Address {
	sum := Keccak256(pub.SerializeUncompressed()[1:])
	var addr domain.Address
	copy(addr[:], sum[domain.HashLength-domain.AddressLength:])
	return addr
}

// SignDigest returns r || s || v with v in {27, 28}.
func SignDigest(key *secp256k1.PrivateKey, digest []byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("private key is nil")
	}
	if len(digest) != domain.HashLength {
		return nil, errors.New("digest must be 32 bytes")
	}
	compact := ecdsa.SignCompact(key, digest, false)
	if len(compact) != compactSigLen {
		return nil, errors.New("unexpected signature length")
	}
	sig := make([]byte, compactSigLen)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// RecoverAddress accepts v as 0/1 or 27/28.
func RecoverAddress(digest, sig []byte) (domain.Address, error) {
	if len(digest) != domain.HashLength {
		return domain.Address{}, errors.New("digest must be 32 bytes")
	}
	if len(sig) != compactSigLen {
		return domain.Address{}, errors.New("invalid signature length")
	}
	v := sig[64]
	if v < recoveryOffset {
		v += recoveryOffset
	}
	if v != recoveryOffset && v != recoveryOffset+1 {
		return domain.Address{}, errors.New("invalid recovery id")
	}
	compact := make([]byte, compactSigLen)
	compact[0] = v
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return domain.Address{}, err
	}
	return PubKeyAddress(pub), nil
}

func VerifyDigest(digest, sig []byte, signer domain.Address) error {
	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		return err
	}
	if recovered != signer {
		return errors.New("signature verification failed")
	}
	return nil
}
