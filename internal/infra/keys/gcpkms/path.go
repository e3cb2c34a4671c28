package gcpkms

import (
	"errors"
	"fmt"

	"mintgate/internal/domain"
	"mintgate/internal/infra/keys"
)

// GCP Secret Manager IDs only allow [A-Za-z0-9_-], so the scope is dash-joined:
// mintgate-{env}-{purpose}-{kid}
const gcpSecretIDFormat = "mintgate-%s-%s-%s"

func secretID(env string, ref domain.KeyRef) (string, error) {
	if env == "" {
		return "", errors.New("MINTGATE_ENV is required")
	}
	if err := keys.ValidateKeyRef(ref); err != nil {
		return "", err
	}
	return fmt.Sprintf(gcpSecretIDFormat, env, ref.Purpose, ref.KID), nil
}
