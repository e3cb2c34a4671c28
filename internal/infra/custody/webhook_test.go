package custody

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
)

var (
	requester, _ = domain.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	resource, _  = domain.ParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func signedVoucher(t *testing.T) (domain.Voucher, domain.Address) {
	t.Helper()
	key, err := cryptoinfra.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	msg := cryptoinfra.Canonicalize(requester, domain.NewSlot(7), resource)
	digest := cryptoinfra.PersonalMessageHash(msg.Hash)
	sig, err := cryptoinfra.SignDigest(key, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return domain.Voucher{Hash: msg.Hash, Signature: sig}, cryptoinfra.PubKeyAddress(key.PubKey())
}

func taskServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MintTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode task request: %v", err)
		}
		if req.UserAddress != requester.Hex() || req.ContractAddress != resource.Hex() {
			t.Fatalf("unexpected task request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestMint_DecodesObjectAndStringResults(t *testing.T) {
	voucher, signer := signedVoucher(t)
	payload := EncodeVoucher(voucher)
	encoded, _ := json.Marshal(payload)

	cases := map[string]any{
		"object": map[string]any{"status": "success", "result": payload},
		"string": map[string]any{"status": "success", "result": string(encoded), "autotaskRunId": "run-1"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := taskServer(t, http.StatusOK, body)
			defer server.Close()

			client := NewWebhookClient(server.URL, 0).WithExpectedSigner(signer)
			result, err := client.Mint(context.Background(), requester, resource)
			if err != nil {
				t.Fatalf("mint: %v", err)
			}
			if result.Voucher.Hash != voucher.Hash || hex.EncodeToString(result.Voucher.Signature) != hex.EncodeToString(voucher.Signature) {
				t.Fatal("voucher differs from custody result")
			}
			if result.Slot != nil {
				t.Fatal("remote vouchers carry no slot")
			}
		})
	}
}

func TestMint_NonSuccessStatusIsSigningFailure(t *testing.T) {
	server := taskServer(t, http.StatusOK, map[string]any{"status": "error", "message": "counter read failed"})
	defer server.Close()

	_, err := NewWebhookClient(server.URL, 0).Mint(context.Background(), requester, resource)
	if !errors.Is(err, domain.ErrSigning) {
		t.Fatalf("expected signing error, got %v", err)
	}
	var upstream *domain.UpstreamStatusError
	if errors.As(err, &upstream) {
		t.Fatal("a 200 with a failed run is not a status passthrough")
	}
}

func TestMint_PassesThroughNon2xx(t *testing.T) {
	cases := []struct {
		status int
		quota  bool
	}{
		{http.StatusBadGateway, false},
		{http.StatusTooManyRequests, true},
		{http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		server := taskServer(t, tc.status, map[string]any{})
		_, err := NewWebhookClient(server.URL, 0).Mint(context.Background(), requester, resource)
		server.Close()

		var upstream *domain.UpstreamStatusError
		if !errors.As(err, &upstream) || upstream.StatusCode != tc.status || upstream.Service != ServiceName {
			t.Fatalf("status %d: expected passthrough, got %v", tc.status, err)
		}
		if errors.Is(err, domain.ErrQuotaExceeded) != tc.quota {
			t.Fatalf("status %d: unexpected quota classification", tc.status)
		}
	}
}

func TestMint_RejectsUnexpectedSigner(t *testing.T) {
	voucher, _ := signedVoucher(t)
	_, other := signedVoucher(t)
	server := taskServer(t, http.StatusOK, map[string]any{"status": "success", "result": EncodeVoucher(voucher)})
	defer server.Close()

	_, err := NewWebhookClient(server.URL, 0).WithExpectedSigner(other).Mint(context.Background(), requester, resource)
	if !errors.Is(err, domain.ErrSigning) {
		t.Fatalf("expected signing error, got %v", err)
	}
}

func TestDecodeVoucher_Rejects(t *testing.T) {
	for _, raw := range []string{``, `null`, `{"hash":"0x12","signature":"0x34"}`, `"not json"`} {
		if _, err := decodeVoucher(json.RawMessage(raw)); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
