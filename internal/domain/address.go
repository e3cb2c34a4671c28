package domain

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

const AddressLength = 20

// Address is a 20-byte account identifier on the verifying chain.
type Address [AddressLength]byte

var errInvalidAddress = errors.New("invalid address")

// ParseAddress accepts a 40 hex character identifier with an optional 0x prefix.
// Mixed-case input must carry a valid EIP-55 checksum; all-lower and all-upper
// input is accepted as is.
func ParseAddress(value string) (Address, error) {
	var addr Address
	raw := strings.TrimPrefix(value, "0x")
	if len(raw) != 2*AddressLength {
		return addr, errInvalidAddress
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return addr, errInvalidAddress
	}
	copy(addr[:], decoded)
	if isMixedCase(raw) && addr.checksumHex() != raw {
		return Address{}, errInvalidAddress
	}
	return addr, nil
}

func IsAddress(value string) bool {
	_, err := ParseAddress(value)
	return err == nil
}

// Hex returns the EIP-55 checksummed form with a 0x prefix.
func (a Address) Hex() string {
	return "0x" + a.checksumHex()
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Address) checksumHex() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
