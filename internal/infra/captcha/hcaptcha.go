package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
)

const DefaultVerifyURL = "https://hcaptcha.com/siteverify"

// HCaptcha verifies proof tokens against the hCaptcha siteverify endpoint.
type HCaptcha struct {
	verifyURL  string
	secret     string
	httpClient *http.Client
}

func New(verifyURL, secret string, timeout time.Duration) *HCaptcha {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HCaptcha{
		verifyURL:  verifyURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func NewFromConfig(cfg config.Config) (*HCaptcha, error) {
	if cfg.HCaptchaSecret == "" {
		return nil, errors.New("HCAPTCHA_SECRET is required")
	}
	return New(cfg.HCaptchaVerifyURL, cfg.HCaptchaSecret, cfg.UpstreamTimeout()), nil
}

// WithHTTPClient swaps the transport, e.g. for an instrumented client.
func (h *HCaptcha) WithHTTPClient(client *http.Client) *HCaptcha {
	if h != nil && client != nil {
		h.httpClient = client
	}
	return h
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify makes exactly one siteverify call. A negative verdict is returned as
// a verdict, not an error; errors mean the verifier could not be consulted.
func (h *HCaptcha) Verify(ctx context.Context, token string) (domain.AdmissionVerdict, error) {
	if h == nil || h.secret == "" {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: verifier not configured", domain.ErrAdmissionUnavailable)
	}
	form := url.Values{}
	form.Set("response", token)
	form.Set("secret", h.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: %v", domain.ErrAdmissionUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: %v", domain.ErrAdmissionUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: %v", domain.ErrAdmissionUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: siteverify status %d", domain.ErrAdmissionUnavailable, resp.StatusCode)
	}
	var decoded siteverifyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.AdmissionVerdict{}, fmt.Errorf("%w: decode siteverify: %v", domain.ErrAdmissionUnavailable, err)
	}
	return domain.AdmissionVerdict{Success: decoded.Success, ErrorCodes: decoded.ErrorCodes}, nil
}
