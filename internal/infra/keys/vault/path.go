package vault

import (
	"errors"
	"fmt"

	"mintgate/internal/domain"
	"mintgate/internal/infra/keys"
)

// Vault KV v2 path format (env-scoped, purpose-scoped):
// secret/data/mintgate/{env}/keys/{purpose}/{kid}
// Stored fields: alg, kid, private_key_hex, address.
const vaultKVPathFormat = "secret/data/mintgate/%s/keys/%s/%s"

func vaultPath(env string, ref domain.KeyRef) (string, error) {
	if env == "" {
		return "", errors.New("MINTGATE_ENV is required")
	}
	if err := keys.ValidateKeyRef(ref); err != nil {
		return "", err
	}
	return fmt.Sprintf(vaultKVPathFormat, env, ref.Purpose, ref.KID), nil
}
