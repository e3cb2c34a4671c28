package gcpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"mintgate/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_AccessCreateDeleteSecret(t *testing.T) {
	const token = "token-123"
	projectID := "project-1"
	secretID := "secret-1"
	payload := []byte("hello")

	var calls []string
	client := New("https://secretmanager.example", projectID, token, 0)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				t.Fatalf("unexpected auth header: %s", r.Header.Get("Authorization"))
			}
			calls = append(calls, r.Method+" "+r.URL.Path)
			var body []byte
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/v1/projects/"+projectID+"/secrets/"+secretID+"/versions/latest:access":
				body, _ = json.Marshal(map[string]any{
					"payload": map[string]string{
						"data": base64.StdEncoding.EncodeToString(payload),
					},
				})
			case r.Method == http.MethodPost && r.URL.Path == "/v1/projects/"+projectID+"/secrets":
				if r.URL.Query().Get("secretId") != secretID {
					t.Fatalf("unexpected secretId query: %s", r.URL.RawQuery)
				}
			case r.Method == http.MethodPost && r.URL.Path == "/v1/projects/"+projectID+"/secrets/"+secretID+":addVersion":
				raw, _ := io.ReadAll(r.Body)
				var req struct {
					Payload struct {
						Data string `json:"data"`
					} `json:"payload"`
				}
				if err := json.Unmarshal(raw, &req); err != nil {
					t.Fatalf("decode add version: %v", err)
				}
				if req.Payload.Data != base64.StdEncoding.EncodeToString(payload) {
					t.Fatalf("unexpected payload data: %s", req.Payload.Data)
				}
			case r.Method == http.MethodDelete && r.URL.Path == "/v1/projects/"+projectID+"/secrets/"+secretID:
			default:
				t.Fatalf("unexpected call: %s %s", r.Method, r.URL.Path)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	got, err := client.AccessSecret(context.Background(), secretID)
	if err != nil {
		t.Fatalf("access secret: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected payload: %q", got)
	}
	if err := client.CreateSecret(context.Background(), secretID, payload); err != nil {
		t.Fatalf("create secret: %v", err)
	}
	if err := client.DeleteSecret(context.Background(), secretID); err != nil {
		t.Fatalf("delete secret: %v", err)
	}
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls, got %v", calls)
	}
}

func TestNewFromConfigRequiresConfig(t *testing.T) {
	if _, err := NewFromConfig(config.Config{}); err == nil {
		t.Fatal("expected error for missing gcp config")
	}
}
