package vault

import (
	"context"
	"errors"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/vaultclient"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type Store struct {
	client *vaultclient.Client
	env    string
}

func NewStore(client *vaultclient.Client, env string) (*Store, error) {
	if env == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	return &Store{client: client, env: env}, nil
}

func NewStoreFromConfig(cfg config.Config) (*Store, error) {
	client, err := vaultclient.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(client, cfg.MintgateEnv)
}

func (s *Store) Put(ctx context.Context, ref domain.KeyRef, key *secp256k1.PrivateKey) error {
	if s == nil || s.client == nil {
		return errors.New("vault store not configured")
	}
	if key == nil {
		return errors.New("private key is required")
	}
	path, err := vaultPath(s.env, ref)
	if err != nil {
		return err
	}
	return s.client.WriteKV(ctx, path, keys.NewStoredKey(ref, key))
}

func (s *Store) Delete(ctx context.Context, ref domain.KeyRef) error {
	if s == nil || s.client == nil {
		return errors.New("vault store not configured")
	}
	path, err := vaultPath(s.env, ref)
	if err != nil {
		return err
	}
	return s.client.DeleteKV(ctx, path)
}
