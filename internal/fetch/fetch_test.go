package fetch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"a11y-server/internal/config"
)

func testFetcherConfig() *config.ServerConfig {
	cfg := config.DefaultServerConfig()
	cfg.AllowPrivateHosts = true
	cfg.FetchTimeout = config.Duration(5 * time.Second)
	return cfg
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path  ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"ftp://example.com", "https://ftp://example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	page, err := New(testFetcherConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != config.DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q", gotAccept)
	}
	if page.ContentType != "text/html; charset=iso-8859-1" {
		t.Errorf("ContentType = %q", page.ContentType)
	}
	if string(page.Body) != "<html></html>" || page.Truncated {
		t.Errorf("body = %q truncated = %v", page.Body, page.Truncated)
	}
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.MaxPageBytes = 10
	page, err := New(cfg).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Body) != 10 || !page.Truncated {
		t.Errorf("len = %d truncated = %v, want 10 true", len(page.Body), page.Truncated)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(testFetcherConfig()).Fetch(context.Background(), srv.URL)
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", fetchErr.StatusCode)
	}
	want := "403 Client Error: Forbidden for url: " + srv.URL
	if fetchErr.Error() != want {
		t.Errorf("Error() = %q, want %q", fetchErr.Error(), want)
	}
}

func TestFetchFollowsLimitedRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(testFetcherConfig())

	page, err := f.Fetch(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.FinalURL != srv.URL+"/end" {
		t.Errorf("FinalURL = %q", page.FinalURL)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/loop")
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *Error for redirect loop, got %v", err)
	}
	if !strings.Contains(err.Error(), "stopped after 10 redirects") {
		t.Errorf("error = %v", err)
	}
}

func TestFetchBlocksPrivateHosts(t *testing.T) {
	cfg := testFetcherConfig()
	cfg.AllowPrivateHosts = false
	f := New(cfg)

	for _, target := range []string{"http://127.0.0.1/", "http://localhost/", "http://10.1.2.3/", "https:///path"} {
		_, err := f.Fetch(context.Background(), target)
		if !errors.Is(err, ErrHostNotAllowed) {
			t.Errorf("Fetch(%q) error = %v, want ErrHostNotAllowed", target, err)
		}
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := testFetcherConfig()
	cfg.FetchTimeout = config.Duration(50 * time.Millisecond)
	_, err := New(cfg).Fetch(context.Background(), srv.URL)
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *Error on timeout, got %v", err)
	}
}

// resolveTo makes every dial from f land on addr, standing in for a DNS
// answer that points a public-looking name somewhere else.
func resolveTo(f *Fetcher, addr string) {
	tr := f.client.Transport.(*http.Transport)
	dial := tr.DialContext
	tr.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return dial(ctx, network, addr)
	}
}

func TestFetchBlocksNamesResolvingToLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	addr := srv.Listener.Addr().String()

	cfg := testFetcherConfig()
	cfg.AllowPrivateHosts = false
	blocked := New(cfg)
	resolveTo(blocked, addr)

	_, err := blocked.Fetch(context.Background(), "http://public.example/")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("error = %v, want ErrHostNotAllowed", err)
	}
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected *Error, got %T", err)
	}

	allowed := New(testFetcherConfig())
	resolveTo(allowed, addr)
	if _, err := allowed.Fetch(context.Background(), "http://public.example/"); err != nil {
		t.Errorf("with private hosts allowed: %v", err)
	}
}

func TestFetchOptions(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-release
			return
		}
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()
	defer close(release)

	type ctxKey struct{}
	var logs bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var failures int

	cfg := testFetcherConfig()
	cfg.MaxPageBytes = 10
	f := New(cfg,
		WithTimeout(50*time.Millisecond),
		WithLogger(func(ctx context.Context) *slog.Logger {
			if id, ok := ctx.Value(ctxKey{}).(string); ok {
				return base.With("request_id", id)
			}
			return base
		}),
		WithFailureHook(func() { failures++ }),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(logs.String(), `"msg":"page body truncated"`) {
		t.Fatalf("missing truncation log: %s", logs.String())
	}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if !strings.Contains(line, `"request_id":"req-42"`) {
			t.Errorf("log line without request id: %s", line)
		}
	}

	if _, err := f.Fetch(ctx, srv.URL+"/slow"); err == nil {
		t.Fatal("expected timeout from WithTimeout")
	}
	if failures != 1 {
		t.Errorf("failure hook called %d times, want 1", failures)
	}
}
