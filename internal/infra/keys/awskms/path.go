package awskms

import (
	"errors"
	"fmt"

	"mintgate/internal/domain"
	"mintgate/internal/infra/keys"
)

// AWS Secrets Manager name format (env-scoped, purpose-scoped):
// mintgate/{env}/keys/{purpose}/{kid}
const awsSecretNameFormat = "mintgate/%s/keys/%s/%s"

func secretName(env string, ref domain.KeyRef) (string, error) {
	if env == "" {
		return "", errors.New("MINTGATE_ENV is required")
	}
	if err := keys.ValidateKeyRef(ref); err != nil {
		return "", err
	}
	return fmt.Sprintf(awsSecretNameFormat, env, ref.Purpose, ref.KID), nil
}
