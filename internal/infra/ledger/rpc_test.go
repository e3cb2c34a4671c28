package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mintgate/internal/domain"
)

const resourceHex = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func newNode(t *testing.T, handler func(w http.ResponseWriter, req map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}
		handler(w, req)
	}))
}

func TestCurrentSlot_IssuesEthCall(t *testing.T) {
	server := newNode(t, func(w http.ResponseWriter, req map[string]any) {
		if req["method"] != "eth_call" {
			t.Fatalf("unexpected method %v", req["method"])
		}
		params := req["params"].([]any)
		call := params[0].(map[string]any)
		if call["to"] != resourceHex {
			t.Fatalf("unexpected to %v", call["to"])
		}
		// keccak256("tokenIdCounter()")[:4]
		if call["data"] != "0x98bdf6f5" {
			t.Fatalf("unexpected selector %v", call["data"])
		}
		if params[1] != "latest" {
			t.Fatalf("unexpected block tag %v", params[1])
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x000000000000000000000000000000000000000000000000000000000000002a"}`))
	})
	defer server.Close()

	resource, _ := domain.ParseAddress(resourceHex)
	slot, err := New(server.URL, "", 0).CurrentSlot(context.Background(), resource)
	if err != nil {
		t.Fatalf("current slot: %v", err)
	}
	if !slot.Equal(domain.NewSlot(42)) {
		t.Fatalf("expected 42, got %s", slot)
	}
}

func TestCurrentSlot_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"rpc error", http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`},
		{"short word", http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x2a"}`},
		{"empty result", http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x"}`},
		{"status", http.StatusServiceUnavailable, `{}`},
		{"garbage", http.StatusOK, `not json`},
	}
	resource, _ := domain.ParseAddress(resourceHex)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()
			_, err := New(server.URL, "", 0).CurrentSlot(context.Background(), resource)
			if !errors.Is(err, domain.ErrOracle) {
				t.Fatalf("expected oracle error, got %v", err)
			}
		})
	}
}

func TestCurrentSlot_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	resource, _ := domain.ParseAddress(resourceHex)
	_, err := New(url, "", 0).CurrentSlot(context.Background(), resource)
	if !errors.Is(err, domain.ErrOracle) || !strings.Contains(err.Error(), "sequence oracle") {
		t.Fatalf("expected oracle error, got %v", err)
	}
}
