package awskms

import (
	"context"
	"encoding/json"
	"errors"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/awsclient"
	cryptoinfra "mintgate/internal/infra/crypto"
	"mintgate/internal/infra/keys"
)

type Manager struct {
	client *awsclient.Client
	env    string
}

func NewManager(client *awsclient.Client, env string) (*Manager, error) {
	if env == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	return &Manager{client: client, env: env}, nil
}

func NewManagerFromConfig(cfg config.Config) (*Manager, error) {
	if cfg.MintgateEnv == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	client, err := awsclient.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewManager(client, cfg.MintgateEnv)
}

func (m *Manager) Sign(ctx context.Context, ref domain.KeyRef, digest []byte) ([]byte, error) {
	if m == nil || m.client == nil {
		return nil, errors.New("aws manager not configured")
	}
	secretID, err := secretName(m.env, ref)
	if err != nil {
		return nil, err
	}
	secretBytes, err := m.client.GetSecret(ctx, secretID)
	if err != nil {
		return nil, err
	}
	var stored keys.StoredKey
	if err := json.Unmarshal(secretBytes, &stored); err != nil {
		return nil, err
	}
	key, err := stored.PrivateKey(ref)
	if err != nil {
		return nil, err
	}
	return keys.SignWith(key, digest)
}

func (m *Manager) Verify(_ context.Context, _ domain.KeyRef, digest []byte, sig []byte, signer domain.Address) error {
	return cryptoinfra.VerifyDigest(digest, sig, signer)
}
