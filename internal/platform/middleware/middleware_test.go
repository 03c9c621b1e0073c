package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

// -- RequestID --

func TestRequestID_GeneratesNew(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	h := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id to be generated")
		}
		return ok(c)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	c.Request().Header.Set(RequestIDHeader, "cli-123")
	if err := RequestID()(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) != "cli-123" {
		t.Errorf("expected cli-123, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReplacesOversized(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	c.Request().Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	_ = RequestID()(ok)(c)
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("expected a fresh uuid, got %q", rec.Header().Get(RequestIDHeader))
	}
}

// -- Logger --

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newContext(http.MethodGet, "/api/patients", nil)
	c.Set("request_id", "req-1")
	if err := Logger(zerolog.New(&buf))(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v (%q)", err, buf.String())
	}
	if entry["level"] != "info" || entry["path"] != "/api/patients" || entry["request_id"] != "req-1" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if entry["status"] != float64(200) {
		t.Errorf("expected status 200, got %v", entry["status"])
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		err   error
		level string
	}{
		{echo.NewHTTPError(http.StatusNotFound, "Patient not found"), "warn"},
		{errors.New("boom"), "error"},
		{echo.NewHTTPError(http.StatusInternalServerError, "db down"), "error"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		c, _ := newContext(http.MethodGet, "/api/patients/x", nil)
		_ = Logger(zerolog.New(&buf))(func(echo.Context) error { return tt.err })(c)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("decode log: %v", err)
		}
		if entry["level"] != tt.level {
			t.Errorf("%v: expected %s, got %v", tt.err, tt.level, entry["level"])
		}
	}
}

func TestLogger_SkipsPaths(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newContext(http.MethodGet, "/health", nil)
	if err := Logger(zerolog.New(&buf), "/health", "/metrics")(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log line for /health, got %q", buf.String())
	}
}

// -- Recovery --

func TestRecovery_CatchesPanic(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/panic", nil)
	err := Recovery(zerolog.Nop())(func(echo.Context) error { panic("test panic") })(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
	if he.Message != "Internal server error" {
		t.Errorf("panic detail must not reach the client, got %v", he.Message)
	}
}

func TestRecovery_LogsPanic(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newContext(http.MethodPost, "/api/patients", nil)
	c.Set("request_id", "req-9")
	_ = Recovery(zerolog.New(&buf))(func(echo.Context) error { panic("nil chart") })(c)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if entry["panic"] != "nil chart" || entry["request_id"] != "req-9" || entry["path"] != "/api/patients" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if s, _ := entry["stack"].(string); !strings.Contains(s, "goroutine") {
		t.Error("expected a stack trace")
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/ok", nil)
	if err := Recovery(zerolog.Nop())(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -- BodyLimit --

func TestParseLimit(t *testing.T) {
	tests := map[string]int64{
		"512":  512,
		"4K":   4 << 10,
		"1mb":  1 << 20,
		"2G":   2 << 30,
		"":     1 << 20,
		"lots": 1 << 20,
		"-3K":  1 << 20,
	}
	for in, want := range tests {
		if got := ParseLimit(in); got != want {
			t.Errorf("ParseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/patients", strings.NewReader(strings.Repeat("a", 20)))
	err := BodyLimit("10")(ok)(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
}

func TestBodyLimit_RejectsWhileReading(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/patients", strings.NewReader(strings.Repeat("a", 20)))
	c.Request().ContentLength = -1
	err := BodyLimit("10")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 while reading, got %v", err)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/patients", strings.NewReader(`{"name":"Rina"}`))
	err := BodyLimit("1K")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, string(b))
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -- RateLimit --

func TestRateLimit_RejectsBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	h := mw(ok)

	for i := 0; i < 2; i++ {
		c, _ := newContext(http.MethodPost, "/api/auth/login", nil)
		if err := h(c); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
	}
	c, rec := newContext(http.MethodPost, "/api/auth/login", nil)
	err := h(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})(ok)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		c, _ := newContext(http.MethodPost, "/api/auth/login", nil)
		c.Request().RemoteAddr = ip + ":5000"
		if err := h(c); err != nil {
			t.Errorf("%s: first request rejected: %v", ip, err)
		}
	}
}

// -- SecurityHeaders --

func TestSecurityHeaders(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/patients", nil)
	if err := SecurityHeaders()(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for h, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
}
