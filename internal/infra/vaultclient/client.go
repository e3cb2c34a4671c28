package vaultclient

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

type Client struct {
	addr       string
	token      string
	httpClient *http.Client
}

func New(addr, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		addr:       strings.TrimRight(addr, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func NewFromConfig(cfg config.Config) (*Client, error) {
	if cfg.VaultAddr == "" || cfg.VaultToken == "" {
		return nil, errors.New("VAULT_ADDR and VAULT_TOKEN are required")
	}
	return New(cfg.VaultAddr, cfg.VaultToken, cfg.UpstreamTimeout()), nil
}

// ReadKV reads a KV v2 secret and decodes its inner data object into out.
func (c *Client) ReadKV(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK)
	if err != nil {
		return err
	}
	var envelope struct {
		Data struct {
			Data json.RawMessage `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	if len(envelope.Data.Data) == 0 || string(envelope.Data.Data) == "null" {
		return errors.New("vault response missing data")
	}
	return json.Unmarshal(envelope.Data.Data, out)
}

func (c *Client) WriteKV(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, path, body, http.StatusOK, http.StatusNoContent)
	return err
}

func (c *Client) DeleteKV(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, http.StatusOK, http.StatusNoContent)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, okStatus ...int) ([]byte, error) {
	if c == nil {
		return nil, errors.New("vault client is nil")
	}
	if c.addr == "" || c.token == "" {
		return nil, errors.New("vault addr or token missing")
	}
	if path == "" {
		return nil, errors.New("vault path is required")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.addr+"/v1/"+strings.TrimLeft(path, "/"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	for _, status := range okStatus {
		if resp.StatusCode == status {
			return body, nil
		}
	}
	return nil, fmt.Errorf("vault %s failed: status %d", strings.ToLower(method), resp.StatusCode)
}
