package crypto

import (
	"mintgate/internal/domain"

	"golang.org/x/crypto/sha3"
)

func Keccak256(parts ...[]byte) domain.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out domain.Hash
	h.Sum(out[:0])
	return out
}

// FunctionSelector returns the first four bytes of keccak256(signature),
// e.g. "tokenIdCounter()".
func FunctionSelector(signature string) [4]byte {
	sum := Keccak256([]byte(signature))
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}
