package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
	"mintgate/internal/usecase"
)

const ServiceName = "custody"

// StatusSuccess is the run status a custody task reports when it produced a
// voucher.
const StatusSuccess = "success"

// MintTaskRequest is the body posted to the custody webhook.
type MintTaskRequest struct {
	UserAddress     string `json:"userAddress"`
	ContractAddress string `json:"contractAddress"`
}

// VoucherPayload is the task result: a hex hash and a hex signature.
type VoucherPayload struct {
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
}

// TaskRun is the webhook response envelope.
type TaskRun struct {
	RunID   string          `json:"autotaskRunId,omitempty"`
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// WebhookClient delegates slot read and signing to a remote custody task.
type WebhookClient struct {
	url        string
	signer     *domain.Address
	httpClient *http.Client
}

func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func NewWebhookClientFromConfig(cfg config.Config) (*WebhookClient, error) {
	url := cfg.WebhookURL()
	if url == "" {
		return nil, errors.New("AUTOTASK_WEBHOOK_URL or AUTOTASK_SECRET_WEBHOOK is required")
	}
	client := NewWebhookClient(url, cfg.UpstreamTimeout())
	if cfg.CustodySignerAddress != "" {
		signer, err := domain.ParseAddress(cfg.CustodySignerAddress)
		if err != nil {
			return nil, fmt.Errorf("CUSTODY_SIGNER_ADDRESS: %w", err)
		}
		client.WithExpectedSigner(signer)
	}
	return client, nil
}

func (c *WebhookClient) WithHTTPClient(client *http.Client) *WebhookClient {
	if c != nil && client != nil {
		c.httpClient = client
	}
	return c
}

// WithExpectedSigner makes Mint reject vouchers that do not recover to signer.
func (c *WebhookClient) WithExpectedSigner(signer domain.Address) *WebhookClient {
	if c != nil {
		c.signer = &signer
	}
	return c
}

func (c *WebhookClient) Mint(ctx context.Context, requester domain.Address, resource domain.Address) (*usecase.MintResult, error) {
	if c == nil || c.url == "" {
		return nil, fmt.Errorf("%w: custody webhook not configured", domain.ErrSigning)
	}
	payload, err := json.Marshal(MintTaskRequest{
		UserAddress:     requester.Hex(),
		ContractAddress: resource.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: custody webhook: %v", domain.ErrSigning, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: custody webhook: %v", domain.ErrSigning, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := domain.ErrSigning
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = domain.ErrQuotaExceeded
		}
		return nil, &domain.UpstreamStatusError{Service: ServiceName, StatusCode: resp.StatusCode, Err: cause}
	}

	var run TaskRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("%w: decode custody response: %v", domain.ErrSigning, err)
	}
	if run.Status != StatusSuccess {
		return nil, fmt.Errorf("%w: custody run %q finished with status %q: %s", domain.ErrSigning, run.RunID, run.Status, run.Message)
	}
	voucher, err := decodeVoucher(run.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	if c.signer != nil {
		digest := cryptoinfra.PersonalMessageHash(voucher.Hash)
		if err := cryptoinfra.VerifyDigest(digest[:], voucher.Signature, *c.signer); err != nil {
			return nil, fmt.Errorf("%w: custody signature: %v", domain.ErrSigning, err)
		}
	}
	return &usecase.MintResult{Voucher: voucher}, nil
}

// decodeVoucher accepts the result as an object or as a JSON-encoded string
// holding that object.
func decodeVoucher(raw json.RawMessage) (domain.Voucher, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return domain.Voucher{}, errors.New("custody result missing")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return domain.Voucher{}, err
		}
		raw = []byte(inner)
	}
	var payload VoucherPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Voucher{}, fmt.Errorf("decode custody result: %v", err)
	}
	hash, err := domain.ParseHash(payload.Hash)
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("custody hash: %v", err)
	}
	sig, err := domain.ParseSignature(payload.Signature)
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("custody signature: %v", err)
	}
	return domain.Voucher{Hash: hash, Signature: sig}, nil
}

// EncodeVoucher renders a voucher as the task result payload.
func EncodeVoucher(v domain.Voucher) VoucherPayload {
	return VoucherPayload{Hash: v.Hash.Hex(), Signature: v.SignatureHex()}
}
