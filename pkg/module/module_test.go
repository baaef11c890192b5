package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/module"
)

func TestNewInvalidPrefixPanics(t *testing.T) {
	for _, prefix := range []string{"", "v1", "/v1/documents"} {
		t.Run(prefix, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%q) did not panic", prefix)
				}
			}()
			module.New(prefix, http.NewServeMux())
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	mux := http.NewServeMux()
	var inner string
	mux.HandleFunc("GET /check-copy-certificate", func(w http.ResponseWriter, r *http.Request) {
		inner = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	m := module.New("/v1", mux)
	var wrapped bool
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.Mount(m)
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"module route", "/v1/check-copy-certificate", http.StatusOK},
		{"trailing slash", "/v1/check-copy-certificate/", http.StatusOK},
		{"native route", "/healthz", http.StatusNoContent},
		{"unknown", "/v2/anything", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if inner != "/check-copy-certificate" {
		t.Errorf("inner path = %q, want prefix stripped", inner)
	}
	if !wrapped {
		t.Error("module middleware not applied")
	}
}

func TestMountDuplicatePrefixPanics(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/v1", http.NewServeMux()))

	defer func() {
		if recover() == nil {
			t.Error("second Mount of /v1 did not panic")
		}
	}()
	router.Mount(module.New("/v1", http.NewServeMux()))
}

func TestPrefixes(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/v2", http.NewServeMux()))
	router.Mount(module.New("/v1", http.NewServeMux()))

	got := router.Prefixes()
	if len(got) != 2 || got[0] != "/v1" || got[1] != "/v2" {
		t.Errorf("Prefixes() = %v", got)
	}
}
