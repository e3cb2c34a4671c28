package domain

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	HashLength      = 32
	SignatureLength = 65
)

type Hash [HashLength]byte

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func ParseHash(value string) (Hash, error) {
	var h Hash
	raw, err := decodeHex(value)
	if err != nil {
		return h, err
	}
	if len(raw) != HashLength {
		return h, errors.New("invalid hash length")
	}
	copy(h[:], raw)
	return h, nil
}

var maxSlot = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Slot is the allocation counter read from the ledger; an unsigned 256-bit value.
type Slot struct {
	value *big.Int
}

func NewSlot(v uint64) Slot {
	return Slot{value: new(big.Int).SetUint64(v)}
}

func SlotFromBig(v *big.Int) (Slot, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxSlot) > 0 {
		return Slot{}, errors.New("slot out of range")
	}
	return Slot{value: new(big.Int).Set(v)}, nil
}

func SlotFromBytes(word []byte) (Slot, error) {
	if len(word) > 32 {
		return Slot{}, errors.New("slot out of range")
	}
	return Slot{value: new(big.Int).SetBytes(word)}, nil
}

func ParseSlot(value string) (Slot, error) {
	v, ok := new(big.Int).SetString(value, 0)
	if !ok {
		return Slot{}, errors.New("invalid slot")
	}
	return SlotFromBig(v)
}

func (s Slot) Big() *big.Int {
	if s.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(s.value)
}

// Bytes32 is the big-endian uint256 word.
func (s Slot) Bytes32() [32]byte {
	var out [32]byte
	if s.value != nil {
		s.value.FillBytes(out[:])
	}
	return out
}

func (s Slot) String() string {
	return s.Big().String()
}

func (s Slot) Equal(other Slot) bool {
	return s.Big().Cmp(other.Big()) == 0
}

// CanonicalMessage is the fixed-layout encoding of (requester, slot, resource).
type CanonicalMessage struct {
	Bytes []byte
	Hash  Hash
}

// Voucher is handed to the caller and never retained.
type Voucher struct {
	Hash      Hash
	Signature []byte
}

func (v Voucher) SignatureHex() string {
	return "0x" + hex.EncodeToString(v.Signature)
}

func ParseSignature(value string) ([]byte, error) {
	raw, err := decodeHex(value)
	if err != nil {
		return nil, err
	}
	if len(raw) != SignatureLength {
		return nil, errors.New("invalid signature length")
	}
	return raw, nil
}

func decodeHex(value string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	if raw == "" {
		return nil, errors.New("empty hex value")
	}
	return hex.DecodeString(raw)
}
