package keys

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const AlgSecp256k1 = "secp256k1"

// StoredKey is the JSON document every remote backend keeps per KeyRef.
type StoredKey struct {
	Alg           string `json:"alg"`
	KID           string `json:"kid"`
	PrivateKeyHex string `json:"private_key_hex"`
	Address       string `json:"address"`
}

func NewStoredKey(ref domain.KeyRef, key *secp256k1.PrivateKey) StoredKey {
	return StoredKey{
		Alg:           AlgSecp256k1,
		KID:           ref.KID,
		PrivateKeyHex: hex.EncodeToString(key.Serialize()),
		Address:       cryptoinfra.PubKeyAddress(key.PubKey()).Hex(),
	}
}

// PrivateKey checks the stored document against ref and returns its key.
func (k StoredKey) PrivateKey(ref domain.KeyRef) (*secp256k1.PrivateKey, error) {
	if k.Alg != "" && !strings.EqualFold(k.Alg, AlgSecp256k1) {
		return nil, errors.New("unsupported key algorithm")
	}
	if k.KID != "" && k.KID != ref.KID {
		return nil, errors.New("kid mismatch")
	}
	key, err := cryptoinfra.ParsePrivateKeyHex(k.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	if k.Address != "" {
		want, err := domain.ParseAddress(k.Address)
		if err != nil {
			return nil, errors.New("stored address is invalid")
		}
		if cryptoinfra.PubKeyAddress(key.PubKey()) != want {
			return nil, errors.New("stored address does not match key")
		}
	}
	return key, nil
}

func ValidateKeyRef(ref domain.KeyRef) error {
	if ref.KID == "" || ref.Purpose == "" {
		return errors.New("key ref is required")
	}
	if ref.Purpose != domain.KeyPurposeVoucher {
		return errors.New("unsupported key purpose")
	}
	if strings.ContainsAny(ref.KID, "/ ") {
		return errors.New("kid contains invalid characters")
	}
	return nil
}

func SignWith(key *secp256k1.PrivateKey, digest []byte) ([]byte, error) {
	if len(digest) != domain.HashLength {
		return nil, errors.New("digest must be 32 bytes")
	}
	return cryptoinfra.SignDigest(key, digest)
}

// Store writes key material into a custody backend. mintctl uses it to
// provision and retire signing identities.
type Store interface {
	Put(ctx context.Context, ref domain.KeyRef, key *secp256k1.PrivateKey) error
	Delete(ctx context.Context, ref domain.KeyRef) error
}
