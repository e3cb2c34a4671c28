package soft

import (
	"context"
	"errors"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
	"mintgate/internal/infra/keys"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Manager holds keys in process memory, either injected or parsed from
// SIGNING_PRIVATE_KEY_HEX for SIGNING_KEY_ID.
type Manager struct {
	keys map[string]*secp256k1.PrivateKey
}

func NewManager(keyMap map[domain.KeyRef]*secp256k1.PrivateKey) *Manager {
	m := &Manager{keys: make(map[string]*secp256k1.PrivateKey, len(keyMap))}
	for ref, key := range keyMap {
		m.keys[keyRefKey(ref)] = key
	}
	return m
}

func NewManagerFromConfig(cfg config.Config) (*Manager, error) {
	if cfg.SigningPrivateKeyHex == "" {
		return nil, errors.New("SIGNING_PRIVATE_KEY_HEX is required")
	}
	key, err := cryptoinfra.ParsePrivateKeyHex(cfg.SigningPrivateKeyHex)
	if err != nil {
		return nil, err
	}
	ref := domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: cfg.SigningKeyID}
	if err := keys.ValidateKeyRef(ref); err != nil {
		return nil, err
	}
	return NewManager(map[domain.KeyRef]*secp256k1.PrivateKey{ref: key}), nil
}

func (m *Manager) Sign(_ context.Context, ref domain.KeyRef, digest []byte) ([]byte, error) {
	if err := keys.ValidateKeyRef(ref); err != nil {
		return nil, err
	}
	key := m.lookupKey(ref)
	if key == nil {
		return nil, errors.New("private key not found")
	}
	return keys.SignWith(key, digest)
}

func (m *Manager) Verify(_ context.Context, _ domain.KeyRef, digest []byte, sig []byte, signer domain.Address) error {
	return cryptoinfra.VerifyDigest(digest, sig, signer)
}

// Address returns the account identifier of the key behind ref.
func (m *Manager) Address(ref domain.KeyRef) (domain.Address, error) {
	key := m.lookupKey(ref)
	if key == nil {
		return domain.Address{}, errors.New("private key not found")
	}
	return cryptoinfra.PubKeyAddress(key.PubKey()), nil
}

func (m *Manager) lookupKey(ref domain.KeyRef) *secp256k1.PrivateKey {
	if m == nil || m.keys == nil {
		return nil
	}
	return m.keys[keyRefKey(ref)]
}

func keyRefKey(ref domain.KeyRef) string {
	return string(ref.Purpose) + "|" + ref.KID
}
