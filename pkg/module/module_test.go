package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/warden/pkg/module"
)

func echoPath() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	})
}

func TestNewValidatesPrefix(t *testing.T) {
	for _, prefix := range []string{"", "api", "/api/v1"} {
		if _, err := module.New(prefix, echoPath()); err == nil {
			t.Errorf("New(%q) should fail", prefix)
		}
	}
	if _, err := module.New("/api", echoPath()); err != nil {
		t.Errorf("New(/api) error = %v", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	api, err := module.New("/api", echoPath())
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.URL.Path
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.Mount(api)
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("native"))
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/tasks", "/tasks"},
		{"/api/tasks/", "/tasks"},
		{"/api", "/"},
		{"/healthz", "native"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}

	if seen != "/" {
		t.Errorf("module middleware saw %q, want stripped path", seen)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/apix", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmounted prefix status = %d, want 404", rec.Code)
	}
}
