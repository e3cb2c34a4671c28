package http

import (
	"errors"
	"fmt"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/crypto"
	"mintgate/internal/infra/custody"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/keys/awskms"
	"mintgate/internal/infra/keys/gcpkms"
	"mintgate/internal/infra/keys/soft"
	"mintgate/internal/infra/keys/vault"
	"mintgate/internal/infra/ledger"
	"mintgate/internal/infra/metrics"
	"mintgate/internal/usecase"
)

// buildKeyManager picks the first backend with complete configuration:
// vault, then AWS, then GCP, then an in-process key.
func buildKeyManager(cfg config.Config) (domain.KeyManager, string, error) {
	if m, err := vault.NewManagerFromConfig(cfg); err == nil {
		return m, "vault", nil
	}
	if m, err := awskms.NewManagerFromConfig(cfg); err == nil {
		return m, "awskms", nil
	}
	if m, err := gcpkms.NewManagerFromConfig(cfg); err == nil {
		return m, "gcpkms", nil
	}
	m, err := soft.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("no signing key backend configured: %w", err)
	}
	return m, "soft", nil
}

func buildLocalMinter(cfg config.Config, recorder *metrics.Recorder, quota domain.RateLimiter) (*usecase.MintVoucher, string, error) {
	oracle, err := ledger.NewFromConfig(cfg)
	if err != nil {
		return nil, "", err
	}
	oracle.WithHTTPClient(recorder.HTTPClient("ledger", cfg.UpstreamTimeout()))

	manager, backend, err := buildKeyManager(cfg)
	if err != nil {
		return nil, "", err
	}
	ref := domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: cfg.SigningKeyID}
	if err := keys.ValidateKeyRef(ref); err != nil {
		return nil, "", err
	}

	return &usecase.MintVoucher{
		Oracle:        oracle,
		Canonicalizer: crypto.NewService(),
		Signer: &usecase.QuotaSigner{
			Next:    keys.NewVoucherSigner(manager, ref),
			Limiter: quota,
			Limit:   cfg.SigningQuotaPerHour,
			Window:  usecase.SigningQuotaWindow,
			Metrics: recorder,
		},
	}, backend, nil
}

func buildMinter(cfg config.Config, recorder *metrics.Recorder, quota domain.RateLimiter) (usecase.Minter, string, error) {
	switch cfg.EffectiveSignerMode() {
	case config.SignerModeWebhook:
		client, err := custody.NewWebhookClientFromConfig(cfg)
		if err != nil {
			return nil, "", err
		}
		client.WithHTTPClient(recorder.HTTPClient(custody.ServiceName, cfg.UpstreamTimeout()))
		return client, config.SignerModeWebhook, nil
	case config.SignerModeLocal:
		minter, backend, err := buildLocalMinter(cfg, recorder, quota)
		if err != nil {
			return nil, "", err
		}
		return minter, config.SignerModeLocal + "/" + backend, nil
	default:
		return nil, "", errors.New("SIGNER_MODE must be webhook or local")
	}
}
