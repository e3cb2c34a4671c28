package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/crypto"
	"mintgate/internal/infra/custody"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/keys/soft"
	"mintgate/internal/infra/ratelimit"
	"mintgate/internal/usecase"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	requesterHex = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	resourceHex  = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testKeyHex   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

var testKeyRef = domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: "relayer"}

type verifierStub struct {
	mu      sync.Mutex
	verdict domain.AdmissionVerdict
	err     error
	calls   int
}

func (v *verifierStub) Verify(ctx context.Context, token string) (domain.AdmissionVerdict, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.verdict, v.err
}

func (v *verifierStub) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type oracleStub struct {
	mu    sync.Mutex
	slot  domain.Slot
	err   error
	calls int
}

func (o *oracleStub) CurrentSlot(ctx context.Context, resource domain.Address) (domain.Slot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	return o.slot, o.err
}

func (o *oracleStub) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type policyStub struct {
	result domain.PolicyResult
	err    error
}

func (p *policyStub) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error) {
	return domain.PolicyEvaluation{BundleHash: "test", Result: p.result}, p.err
}

func mustAddress(t *testing.T, value string) domain.Address {
	t.Helper()
	addr, err := domain.ParseAddress(value)
	if err != nil {
		t.Fatalf("parse address %s: %v", value, err)
	}
	return addr
}

func testSigningKey(t *testing.T) (*secp256k1.PrivateKey, domain.Address) {
	t.Helper()
	key, err := crypto.ParsePrivateKeyHex(testKeyHex)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	return key, crypto.PubKeyAddress(key.PubKey())
}

func newLocalMinter(t *testing.T, oracle usecase.SlotOracle, signer usecase.VoucherSigner) *usecase.MintVoucher {
	t.Helper()
	if signer == nil {
		key, _ := testSigningKey(t)
		manager := soft.NewManager(map[domain.KeyRef]*secp256k1.PrivateKey{testKeyRef: key})
		signer = keys.NewVoucherSigner(manager, testKeyRef)
	}
	return &usecase.MintVoucher{
		Oracle:        oracle,
		Canonicalizer: crypto.NewService(),
		Signer:        signer,
	}
}

type testServer struct {
	srv      *Server
	verifier *verifierStub
}

func newTestServer(t *testing.T, cfg config.Config, minter usecase.Minter, policy usecase.IssuancePolicy, limiter domain.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	verifier := &verifierStub{verdict: domain.AdmissionVerdict{Success: true}}
	issue := &usecase.IssueVoucher{
		Gate:     &usecase.AdmissionGate{Verifier: verifier},
		Minter:   minter,
		Resource: mustAddress(t, resourceHex),
		Log:      logger,
	}
	if policy != nil {
		issue.Policy = policy
	}
	srv := NewServerWithDeps(cfg, ServerDeps{
		Issue:       issue,
		RateLimiter: limiter,
		Log:         logger,
	})
	return &testServer{srv: srv, verifier: verifier}
}

func (ts *testServer) do(method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/mint", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:40000"
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func mintBody(address, token string) string {
	raw, _ := json.Marshal(map[string]string{"address": address, "token": token})
	return string(raw)
}

func assertEmptyBody(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if strings.TrimSpace(w.Body.String()) != "{}" {
		t.Fatalf("expected empty object body, got %q", w.Body.String())
	}
}

func TestMint_RejectsNonPost(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), nil, nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, "PROPFIND", "QUERY"} {
		w := ts.do(method, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, w.Code)
		}
		assertEmptyBody(t, w)
		if w.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("%s: expected Allow: POST, got %q", method, w.Header().Get("Allow"))
		}
	}
	if ts.verifier.callCount() != 0 || oracle.callCount() != 0 {
		t.Fatalf("expected no downstream calls")
	}
}

func TestMint_IssuesVoucherForSlot(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(42)}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), nil, nil)

	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp mintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	want := crypto.Canonicalize(mustAddress(t, requesterHex), domain.NewSlot(42), mustAddress(t, resourceHex))
	if resp.Result.Hash != want.Hash.Hex() {
		t.Fatalf("expected hash %s, got %s", want.Hash.Hex(), resp.Result.Hash)
	}
	sig, err := domain.ParseSignature(resp.Result.Signature)
	if err != nil {
		t.Fatalf("parse signature: %v", err)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("expected v in {27,28}, got %d", sig[64])
	}
	_, signer := testSigningKey(t)
	digest := crypto.PersonalMessageHash(want.Hash)
	if err := crypto.VerifyDigest(digest[:], sig, signer); err != nil {
		t.Fatalf("signature does not recover to signer: %v", err)
	}
	if ts.verifier.callCount() != 1 || oracle.callCount() != 1 {
		t.Fatalf("expected one verifier and one oracle call")
	}
}

func TestMint_ClientErrors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		verdict      domain.AdmissionVerdict
		verifyErr    error
		wantVerifier int
	}{
		{name: "malformed json", body: "{not json"},
		{name: "empty body", body: ""},
		{name: "missing token", body: `{"address":"` + requesterHex + `"}`},
		{name: "address not a string", body: `{"address":42,"token":"tok"}`},
		{name: "bad checksum", body: mintBody("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "tok")},
		{name: "admission rejected", body: mintBody(requesterHex, "tok"), verdict: domain.AdmissionVerdict{ErrorCodes: []string{"invalid-input-response"}}, wantVerifier: 1},
		{name: "admission unavailable", body: mintBody(requesterHex, "tok"), verifyErr: domain.ErrAdmissionUnavailable, wantVerifier: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			oracle := &oracleStub{slot: domain.NewSlot(1)}
			ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), nil, nil)
			ts.verifier.verdict = tc.verdict
			ts.verifier.err = tc.verifyErr

			w := ts.do(http.MethodPost, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			assertEmptyBody(t, w)
			if ts.verifier.callCount() != tc.wantVerifier {
				t.Fatalf("expected %d verifier calls, got %d", tc.wantVerifier, ts.verifier.callCount())
			}
			if oracle.callCount() != 0 {
				t.Fatalf("oracle must not be consulted")
			}
		})
	}
}

func TestMint_OracleFailureIs500(t *testing.T) {
	oracle := &oracleStub{err: errors.New("node down")}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), nil, nil)

	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	assertEmptyBody(t, w)
}

func TestMint_PolicyDenyIs403(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	policy := &policyStub{result: domain.PolicyResult{Deny: []domain.PolicyDeny{{Code: "REQUESTER_BLOCKED"}}}}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), policy, nil)

	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	assertEmptyBody(t, w)
	if ts.verifier.callCount() != 0 {
		t.Fatalf("denied requester must not spend a verification")
	}
}

func TestMint_PolicyUnavailableIs500(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	policy := &policyStub{err: domain.ErrPolicyUnavailable}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), policy, nil)

	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestMint_LocalQuotaExceededIs429(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	key, _ := testSigningKey(t)
	manager := soft.NewManager(map[domain.KeyRef]*secp256k1.PrivateKey{testKeyRef: key})
	signer := &usecase.QuotaSigner{
		Next:    keys.NewVoucherSigner(manager, testKeyRef),
		Limiter: ratelimit.NewSlidingMemoryLimiter(ratelimit.MemoryLimiterConfig{}),
		Limit:   1,
	}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, signer), nil, nil)

	if w := ts.do(http.MethodPost, mintBody(requesterHex, "tok")); w.Code != http.StatusOK {
		t.Fatalf("expected first call to succeed, got %d", w.Code)
	}
	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	assertEmptyBody(t, w)
}

func TestMint_WebhookStatusPassthrough(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusNotFound} {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"internal detail"}`))
		}))
		ts := newTestServer(t, config.Config{}, custody.NewWebhookClient(upstream.URL, time.Second), nil, nil)

		w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
		upstream.Close()
		if w.Code != status {
			t.Fatalf("expected %d passed through, got %d", status, w.Code)
		}
		assertEmptyBody(t, w)
	}
}

func TestMint_WebhookFailedRunHidesDetail(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"autotaskRunId":"run-1","status":"error","message":"relayer key leaked here"}`))
	}))
	defer upstream.Close()
	ts := newTestServer(t, config.Config{}, custody.NewWebhookClient(upstream.URL, time.Second), nil, nil)

	w := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	assertEmptyBody(t, w)
}

func TestMint_RateLimitPerClient(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	cfg := config.Config{RateLimitRequests: 1, RateLimitWindowSeconds: 60}
	limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	ts := newTestServer(t, cfg, newLocalMinter(t, oracle, nil), nil, limiter)

	first := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if first.Header().Get("RateLimit-Limit") != "1" || first.Header().Get("RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected rate limit headers: %v", first.Header())
	}

	second := ts.do(http.MethodPost, mintBody(requesterHex, "tok"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" || second.Header().Get("RateLimit-Reset") == "" {
		t.Fatalf("expected retry headers, got %v", second.Header())
	}
	if ts.verifier.callCount() != 1 {
		t.Fatalf("limited request must not reach the verifier")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	return domain.RateLimitDecision{}, errors.New("redis down")
}

func TestMint_RateLimiterFailureModes(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}

	open := newTestServer(t, config.Config{RateLimitRequests: 5}, newLocalMinter(t, oracle, nil), nil, failingLimiter{})
	if w := open.do(http.MethodPost, mintBody(requesterHex, "tok")); w.Code != http.StatusOK {
		t.Fatalf("fail-open: expected 200, got %d", w.Code)
	}

	closed := newTestServer(t, config.Config{RateLimitRequests: 5, RateLimitFailClosed: true}, newLocalMinter(t, oracle, nil), nil, failingLimiter{})
	if w := closed.do(http.MethodPost, mintBody(requesterHex, "tok")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fail-closed: expected 429, got %d", w.Code)
	}
}

func TestNewServer_MisconfiguredRefusesMint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	srv := NewServer(config.Config{}, nil, logger)
	if srv.InitErr() == nil {
		t.Fatalf("expected init error for empty config")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/mint", strings.NewReader(mintBody(requesterHex, "tok")))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	assertEmptyBody(t, w)

	health := httptest.NewRecorder()
	srv.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 health, got %d", health.Code)
	}
}

func TestNewServer_LocalModeFromConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	cfg := config.Config{
		HCaptchaSecret:       "secret",
		ResourceAddress:      resourceHex,
		EthRPCURL:            "http://127.0.0.1:8545",
		SignerMode:           config.SignerModeLocal,
		SigningKeyID:         "relayer",
		SigningPrivateKeyHex: testKeyHex,
		SigningQuotaPerHour:  120,
	}
	srv := NewServer(cfg, nil, logger)
	if err := srv.InitErr(); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"signer_mode":"local/soft"`) {
		t.Fatalf("unexpected health response %d: %s", w.Code, w.Body.String())
	}
}

func TestNewServer_QuotaDoesNotShareClientCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	cfg := config.Config{
		HCaptchaSecret:       "secret",
		ResourceAddress:      resourceHex,
		EthRPCURL:            "http://127.0.0.1:8545",
		SignerMode:           config.SignerModeLocal,
		SigningKeyID:         "relayer",
		SigningPrivateKeyHex: testKeyHex,
		SigningQuotaPerHour:  120,
		RateLimitRequests:    5,
		RateLimitMaxKeys:     1,
	}
	srv := NewServer(cfg, nil, logger)
	defer srv.Close()
	if err := srv.InitErr(); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}

	ctx := context.Background()
	if _, err := srv.counters.Allow(ctx, "ip:192.0.2.1:endpoint:mint", 5, time.Minute); err != nil {
		t.Fatalf("fill client counters: %v", err)
	}
	if _, err := srv.counters.Allow(ctx, "ip:192.0.2.2:endpoint:mint", 5, time.Minute); err == nil {
		t.Fatal("expected client counters to be at capacity")
	}
	decision, err := srv.quota.Allow(ctx, "signing-quota", cfg.SigningQuotaPerHour, usecase.SigningQuotaWindow)
	if err != nil {
		t.Fatalf("quota must not be affected by client counters: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("unexpected quota decision %+v", decision)
	}
}

func TestServer_MetricsAndNoRoute(t *testing.T) {
	oracle := &oracleStub{slot: domain.NewSlot(1)}
	ts := newTestServer(t, config.Config{}, newLocalMinter(t, oracle, nil), nil, nil)

	metricsResp := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(metricsResp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if metricsResp.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", metricsResp.Code)
	}

	missing := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
	assertEmptyBody(t, missing)
}
