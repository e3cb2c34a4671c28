package vault

import (
	"context"
	"errors"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/vaultclient"
)

type Manager struct {
	client *vaultclient.Client
	env    string
}

func NewManager(client *vaultclient.Client, env string) (*Manager, error) {
	if env == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	return &Manager{client: client, env: env}, nil
}

func NewManagerFromConfig(cfg config.Config) (*Manager, error) {
	if cfg.MintgateEnv == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	client, err := vaultclient.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewManager(client, cfg.MintgateEnv)
}

func (m *Manager) Sign(ctx context.Context, ref domain.KeyRef, digest []byte) ([]byte, error) {
	if m == nil || m.client == nil {
		return nil, errors.New("vault manager not configured")
	}
	path, err := vaultPath(m.env, ref)
	if err != nil {
		return nil, err
	}
	var stored keys.StoredKey
	if err := m.client.ReadKV(ctx, path, &stored); err != nil {
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
