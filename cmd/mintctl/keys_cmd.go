package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/crypto"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/keys/awskms"
	"mintgate/internal/infra/keys/gcpkms"
	"mintgate/internal/infra/keys/vault"
)

type keygenOutput struct {
	PrivateKeyHex string `json:"private_key_hex"`
	Address       string `json:"address"`
}

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var outPath string
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}
	stored := keys.NewStoredKey(domain.KeyRef{Purpose: domain.KeyPurposeVoucher}, key)
	return writeJSON(outPath, keygenOutput{
		PrivateKeyHex: stored.PrivateKeyHex,
		Address:       stored.Address,
	})
}

// openKeyStore reads backend credentials from the same environment the
// services use.
func openKeyStore(backend string, cfg config.Config) (keys.Store, error) {
	switch backend {
	case "vault":
		s, err := vault.NewStoreFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "awskms":
		s, err := awskms.NewStoreFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcpkms":
		s, err := gcpkms.NewStoreFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func runKeysPut(args []string) int {
	fs := flag.NewFlagSet("keys put", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var backend string
	var kid string
	var keyHex string
	fs.StringVar(&backend, "backend", "", "key backend (vault, awskms, gcpkms)")
	fs.StringVar(&kid, "kid", "", "signing key id")
	fs.StringVar(&keyHex, "key-hex", "", "secp256k1 private key hex")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ref := domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: kid}
	if err := keys.ValidateKeyRef(ref); err != nil {
		fmt.Fprintf(os.Stderr, "invalid kid: %v\n", err)
		return 1
	}
	key, err := crypto.ParsePrivateKeyHex(keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse key: %v\n", err)
		return 1
	}
	store, err := openKeyStore(backend, config.FromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open key store: %v\n", err)
		return 1
	}
	if err := store.Put(context.Background(), ref, key); err != nil {
		fmt.Fprintf(os.Stderr, "store key: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, crypto.PubKeyAddress(key.PubKey()).Hex())
	return 0
}

func runKeysDelete(args []string) int {
	fs := flag.NewFlagSet("keys delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var backend string
	var kid string
	fs.StringVar(&backend, "backend", "", "key backend (vault, awskms, gcpkms)")
	fs.StringVar(&kid, "kid", "", "signing key id")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ref := domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: kid}
	if err := keys.ValidateKeyRef(ref); err != nil {
		fmt.Fprintf(os.Stderr, "invalid kid: %v\n", err)
		return 1
	}
	store, err := openKeyStore(backend, config.FromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open key store: %v\n", err)
		return 1
	}
	if err := store.Delete(context.Background(), ref); err != nil {
		fmt.Fprintf(os.Stderr, "delete key: %v\n", err)
		return 1
	}
	return 0
}
