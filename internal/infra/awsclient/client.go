package awsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mintgate/internal/config"
)

const (
	targetGetSecretValue = "GetSecretValue"
	targetCreateSecret   = "CreateSecret"
	targetDeleteSecret   = "DeleteSecret"
)

// Client talks to AWS Secrets Manager over its JSON 1.1 protocol.
type Client struct {
	endpoint   string
	creds      credentials
	httpClient *http.Client
	clock      func() time.Time
}

func New(endpoint, region, accessKey, secretKey, sessionToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		creds: credentials{
			region:       region,
			accessKey:    accessKey,
			secretKey:    secretKey,
			sessionToken: sessionToken,
		},
		httpClient: &http.Client{Timeout: timeout},
		clock:      time.Now,
	}
}

func NewFromConfig(cfg config.Config) (*Client, error) {
	if cfg.AWSRegion == "" || cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
		return nil, errors.New("AWS_REGION, AWS_ACCESS_KEY_ID, and AWS_SECRET_ACCESS_KEY are required")
	}
	endpoint := cfg.AWSSecretsManagerEndpoint
	if endpoint == "" {
		endpoint = "https://secretsmanager." + cfg.AWSRegion + ".amazonaws.com"
	}
	return New(endpoint, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken, cfg.UpstreamTimeout()), nil
}

func (c *Client) WithClock(clock func() time.Time) *Client {
	if c == nil {
		return nil
	}
	c.clock = clock
	return c
}

func (c *Client) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	if secretID == "" {
		return nil, errors.New("secret id is required")
	}
	body, err := c.do(ctx, targetGetSecretValue, map[string]string{"SecretId": secretID})
	if err != nil {
		return nil, err
	}
	var resp struct {
		SecretString string `json:"SecretString"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.SecretString == "" {
		return nil, errors.New("secret string missing")
	}
	return []byte(resp.SecretString), nil
}

func (c *Client) CreateSecret(ctx context.Context, secretID string, secretString []byte) error {
	if secretID == "" {
		return errors.New("secret id is required")
	}
	_, err := c.do(ctx, targetCreateSecret, map[string]any{
		"Name":         secretID,
		"SecretString": string(secretString),
	})
	return err
}

func (c *Client) DeleteSecret(ctx context.Context, secretID string) error {
	if secretID == "" {
		return errors.New("secret id is required")
	}
	_, err := c.do(ctx, targetDeleteSecret, map[string]any{
		"SecretId":                   secretID,
		"ForceDeleteWithoutRecovery": true,
	})
	return err
}

func (c *Client) do(ctx context.Context, target string, payload any) ([]byte, error) {
	if c == nil {
		return nil, errors.New("aws client is nil")
	}
	if c.endpoint == "" || !c.creds.complete() {
		return nil, errors.New("aws client missing configuration")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", "secretsmanager."+target)

	clock := c.clock
	if clock == nil {
		clock = time.Now
	}
	if err := c.creds.sign(req, body, clock().UTC()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aws secrets manager %s failed: status %d", target, resp.StatusCode)
	}
	return respBody, nil
}
