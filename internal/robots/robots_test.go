package robots

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCanFetchDisallowedPath(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cache := NewCache("webpiper-test", discardLogger())
	ctx := t.Context()

	if cache.CanFetch(ctx, srv.URL+"/private/secret.html") {
		t.Error("CanFetch() = true for disallowed path")
	}
	if !cache.CanFetch(ctx, srv.URL+"/public/page.html") {
		t.Error("CanFetch() = false for allowed path")
	}
}

func TestCanFetchAgentSpecificRules(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: badbot\nDisallow: /\n\nUser-agent: *\nDisallow:\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := t.Context()

	if NewCache("badbot", discardLogger()).CanFetch(ctx, srv.URL+"/page") {
		t.Error("CanFetch() = true for agent banned by name")
	}
	if !NewCache("goodbot", discardLogger()).CanFetch(ctx, srv.URL+"/page") {
		t.Error("CanFetch() = false for agent covered by the open wildcard group")
	}
}

func TestCanFetchFailsOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "missing robots.txt",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cache := NewCache("webpiper-test", discardLogger())
			if !cache.CanFetch(t.Context(), srv.URL+"/page") {
				t.Error("CanFetch() = false, want fail-open")
			}
		})
	}
}

func TestCanFetchUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cache := NewCache("webpiper-test", discardLogger())
	if !cache.CanFetch(t.Context(), url+"/page") {
		t.Error("CanFetch() = false, want fail-open for unreachable host")
	}
}

func TestRobotsFetchedOncePerOrigin(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		fmt.Fprint(w, "User-agent: *\nDisallow:\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cache := NewCache("webpiper-test", discardLogger())
	ctx := t.Context()
	for i := 0; i < 10; i++ {
		cache.CanFetch(ctx, fmt.Sprintf("%s/page-%d", srv.URL, i))
	}

	if n := fetches.Load(); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", n)
	}
}
