package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
)

func probe(t *testing.T, lc *lifecycle.Coordinator, path string) (int, probeStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	buildRouter(lc, "1.2.3").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body probeStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	code, body := probe(t, lifecycle.New(), "/healthz")
	if code != http.StatusOK || body.Version != "1.2.3" {
		t.Errorf("healthz = %d %+v", code, body)
	}
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		lc := lifecycle.New()
		lc.WaitForStartup()

		code, body := probe(t, lc, "/readyz")
		if code != http.StatusOK || body.Status != "ready" {
			t.Errorf("readyz = %d %+v", code, body)
		}
	})

	t.Run("required failure", func(t *testing.T) {
		lc := lifecycle.New()
		lc.OnStartup(lifecycle.Hook{
			Name:     "cache",
			Required: true,
			Run:      func(context.Context) error { return errors.New("dial refused") },
		})
		lc.WaitForStartup()

		code, body := probe(t, lc, "/readyz")
		if code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", code)
		}
		if _, ok := body.Failures["cache"]; !ok {
			t.Errorf("failures = %v, want cache entry", body.Failures)
		}
	})
}
