package middleware_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/auth"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/middleware"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestApplyOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var stack middleware.Stack
	stack.Use(tag("first"))
	stack.Use(tag("second"))
	stack.Apply(http.HandlerFunc(okHandler)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order = %v", order)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"https://fes.example"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	h := middleware.CORS(cfg)(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", "GET", "https://fes.example", http.StatusOK, "https://fes.example"},
		{"disallowed origin", "GET", "https://evil.example", http.StatusOK, ""},
		{"preflight", "OPTIONS", "https://fes.example", http.StatusNoContent, "https://fes.example"},
		{"disallowed preflight", "OPTIONS", "https://evil.example", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/check-copy-certificate", nil))

	out := buf.String()
	if !strings.Contains(out, "status=403") || !strings.Contains(out, "uri=/v1/check-copy-certificate") {
		t.Errorf("log = %s", out)
	}
}

func TestLoggerRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	t.Run("propagated", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
			t.Errorf("response id = %q, want abc-123", got)
		}
		if !strings.Contains(buf.String(), "level=ERROR") {
			t.Errorf("5xx should log at error: %s", buf.String())
		}
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if len(rec.Header().Get(middleware.RequestIDHeader)) != 36 {
			t.Errorf("generated id = %q, want uuid", rec.Header().Get(middleware.RequestIDHeader))
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := &middleware.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	h := middleware.RateLimit(cfg)(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	other := httptest.NewRequest("GET", "/", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("separate client status = %d", rec.Code)
	}
}

type verifierFunc func(ctx context.Context, raw string) (auth.Claims, error)

func (f verifierFunc) Verify(ctx context.Context, raw string) (auth.Claims, error) {
	return f(ctx, raw)
}

func TestAuthenticate(t *testing.T) {
	v := verifierFunc(func(_ context.Context, raw string) (auth.Claims, error) {
		if raw != "good" {
			return auth.Claims{}, auth.ErrInvalidToken
		}
		return auth.Claims{Subject: "user-1", ContactID: "contact-1"}, nil
	})

	var seen auth.Claims
	h := middleware.Authenticate(v, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if seen.Subject != "user-1" {
		t.Errorf("claims not propagated: %+v", seen)
	}
}
