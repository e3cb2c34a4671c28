package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SignerModeWebhook = "webhook"
	SignerModeLocal   = "local"

	defaultAutotaskBaseURL = "https://api.defender.openzeppelin.com/autotasks/"
)

type Config struct {
	HTTPAddr        string
	CustodyHTTPAddr string
	PostgresDSN     string
	LogLevel        string
	LogFormat       string

	MintgateEnv string

	HCaptchaSecret    string
	HCaptchaVerifyURL string

	ResourceAddress     string
	EthRPCURL           string
	LedgerCounterMethod string

	SignerMode            string
	AutotaskWebhookURL    string
	AutotaskBaseURL       string
	AutotaskSecretWebhook string
	CustodySignerAddress  string
	CustodyWebhookSecret  string

	SigningKeyID         string
	SigningPrivateKeyHex string
	SigningQuotaPerHour  int

	VaultAddr  string
	VaultToken string

	AWSRegion                 string
	AWSAccessKeyID            string
	AWSSecretAccessKey        string
	AWSSessionToken           string
	AWSSecretsManagerEndpoint string
	GCPProjectID              string
	GCPAccessToken            string
	GCPSecretManagerEndpoint  string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PolicyBundlePath string

	UpstreamTimeoutSeconds int
}

func FromEnv() Config {
	return Config{
		HTTPAddr:                  envDefault("HTTP_ADDR", ":8080"),
		CustodyHTTPAddr:           envDefault("CUSTODY_HTTP_ADDR", ":8090"),
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		LogFormat:                 envDefault("LOG_FORMAT", "json"),
		MintgateEnv:               os.Getenv("MINTGATE_ENV"),
		HCaptchaSecret:            os.Getenv("HCAPTCHA_SECRET"),
		HCaptchaVerifyURL:         envDefault("HCAPTCHA_VERIFY_URL", "https://hcaptcha.com/siteverify"),
		ResourceAddress:           envDefault("NFT_ADDRESS", os.Getenv("NEXT_PUBLIC_NFT_ADDRESS")),
		EthRPCURL:                 os.Getenv("ETH_RPC_URL"),
		LedgerCounterMethod:       envDefault("LEDGER_COUNTER_METHOD", "tokenIdCounter()"),
		SignerMode:                strings.ToLower(os.Getenv("SIGNER_MODE")),
		AutotaskWebhookURL:        os.Getenv("AUTOTASK_WEBHOOK_URL"),
		AutotaskBaseURL:           envDefault("AUTOTASK_BASE_URL", defaultAutotaskBaseURL),
		AutotaskSecretWebhook:     os.Getenv("AUTOTASK_SECRET_WEBHOOK"),
		CustodySignerAddress:      os.Getenv("CUSTODY_SIGNER_ADDRESS"),
		CustodyWebhookSecret:      os.Getenv("CUSTODY_WEBHOOK_SECRET"),
		SigningKeyID:              envDefault("SIGNING_KEY_ID", "relayer"),
		SigningPrivateKeyHex:      os.Getenv("SIGNING_PRIVATE_KEY_HEX"),
		SigningQuotaPerHour:       envNonNegativeIntDefault("SIGNING_QUOTA_PER_HOUR", 120),
		VaultAddr:                 os.Getenv("VAULT_ADDR"),
		VaultToken:                os.Getenv("VAULT_TOKEN"),
		AWSRegion:                 os.Getenv("AWS_REGION"),
		AWSAccessKeyID:            os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:        os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:           os.Getenv("AWS_SESSION_TOKEN"),
		AWSSecretsManagerEndpoint: os.Getenv("AWS_SECRETS_MANAGER_ENDPOINT"),
		GCPProjectID:              os.Getenv("GCP_PROJECT_ID"),
		GCPAccessToken:            os.Getenv("GCP_ACCESS_TOKEN"),
		GCPSecretManagerEndpoint:  os.Getenv("GCP_SECRET_MANAGER_ENDPOINT"),
		RateLimitRequests:         envNonNegativeIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:    envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:       envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:          envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
		PolicyBundlePath:          os.Getenv("POLICY_BUNDLE_PATH"),
		UpstreamTimeoutSeconds:    envIntDefault("UPSTREAM_TIMEOUT_SECONDS", 10),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// envNonNegativeIntDefault keeps an explicit 0, which disables the limit it
// configures.
func envNonNegativeIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

// EffectiveSignerMode picks webhook when a webhook target is configured and
// no explicit mode is set.
func (c Config) EffectiveSignerMode() string {
	if c.SignerMode != "" {
		return c.SignerMode
	}
	if c.WebhookURL() != "" {
		return SignerModeWebhook
	}
	return SignerModeLocal
}

func (c Config) WebhookURL() string {
	if c.AutotaskWebhookURL != "" {
		return c.AutotaskWebhookURL
	}
	if c.AutotaskSecretWebhook == "" {
		return ""
	}
	return strings.TrimRight(c.AutotaskBaseURL, "/") + "/" + c.AutotaskSecretWebhook
}

func (c Config) UpstreamTimeout() time.Duration {
	if c.UpstreamTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// ValidateGateway reports settings the mint endpoint cannot start without.
func (c Config) ValidateGateway() error {
	var errs []error
	if c.HCaptchaSecret == "" {
		errs = append(errs, errors.New("HCAPTCHA_SECRET is required"))
	}
	if c.ResourceAddress == "" {
		errs = append(errs, errors.New("NFT_ADDRESS is required"))
	}
	switch c.EffectiveSignerMode() {
	case SignerModeWebhook:
		if c.WebhookURL() == "" {
			errs = append(errs, errors.New("AUTOTASK_WEBHOOK_URL or AUTOTASK_SECRET_WEBHOOK is required in webhook mode"))
		}
	case SignerModeLocal:
		errs = append(errs, c.validateLocalPipeline()...)
	default:
		errs = append(errs, errors.New("SIGNER_MODE must be webhook or local"))
	}
	return errors.Join(errs...)
}

// ValidateCustody reports settings the custody service cannot start without.
func (c Config) ValidateCustody() error {
	var errs []error
	if c.CustodyWebhookSecret == "" {
		errs = append(errs, errors.New("CUSTODY_WEBHOOK_SECRET is required"))
	}
	errs = append(errs, c.validateLocalPipeline()...)
	return errors.Join(errs...)
}

func (c Config) validateLocalPipeline() []error {
	var errs []error
	if c.EthRPCURL == "" {
		errs = append(errs, errors.New("ETH_RPC_URL is required"))
	}
	if c.SigningKeyID == "" {
		errs = append(errs, errors.New("SIGNING_KEY_ID is required"))
	}
	return errs
}
