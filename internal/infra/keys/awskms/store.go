package awskms

import (
	"context"
	"encoding/json"
	"errors"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/awsclient"
	"mintgate/internal/infra/keys"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type Store struct {
	client *awsclient.Client
	env    string
}

func NewStore(client *awsclient.Client, env string) (*Store, error) {
	if env == "" {
		return nil, errors.New("MINTGATE_ENV is required")
	}
	return &Store{client: client, env: env}, nil
}

func NewStoreFromConfig(cfg config.Config) (*Store, error) {
	client, err := awsclient.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(client, cfg.MintgateEnv)
}

func (s *Store) Put(ctx context.Context, ref domain.KeyRef, key *secp256k1.PrivateKey) error {
	if s == nil || s.client == nil {
		return errors.New("aws store not configured")
	}
	if key == nil {
		return errors.New("private key is required")
	}
	secretID, err := secretName(s.env, ref)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(keys.NewStoredKey(ref, key))
	if err != nil {
		return err
	}
	return s.client.CreateSecret(ctx, secretID, payload)
}

func (s *Store) Delete(ctx context.Context, ref domain.KeyRef) error {
	if s == nil || s.client == nil {
		return errors.New("aws store not configured")
	}
	secretID, err := secretName(s.env, ref)
	if err != nil {
		return err
	}
	return s.client.DeleteSecret(ctx, secretID)
}
