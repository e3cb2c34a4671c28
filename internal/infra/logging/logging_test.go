package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mintgate/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.Warn("shown")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json entry: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "shown" {
		t.Fatalf("unexpected entry %v", entry)
	}

	if NewWithWriter(config.Config{LogLevel: "loud"}, &buf).GetLevel() != logrus.InfoLevel {
		t.Fatal("unknown level must fall back to info")
	}
}

func TestMiddleware_RequestIDAndAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := logtest.NewNullLogger()
	router := gin.New()
	router.Use(RequestID(), AccessLog(logger))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "abc-123" || rec.Body.String() != "abc-123" {
		t.Fatalf("request id not propagated: %q %q", rec.Header().Get(RequestIDHeader), rec.Body.String())
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["request_id"] != "abc-123" || entry.Data["status"] != http.StatusOK {
		t.Fatalf("unexpected access log %+v", entry)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(RequestIDHeader))
	}
}
