// Package fetch retrieves pages for auditing. The server and the CLI share
// one Fetcher so both honor the same timeout, size cap, redirect limit,
// User-Agent and private-host policy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"a11y-server/internal/config"
	"a11y-server/internal/util"
)

// ErrHostNotAllowed is wrapped in an *Error when the target, or the address
// it resolves to, is internal.
var ErrHostNotAllowed = errors.New("host is not allowed")

// Page is the raw response body of an audited page.
type Page struct {
	URL         string
	FinalURL    string
	ContentType string
	Body        []byte
	Truncated   bool
}

// Error is any failure retrieving the page: DNS, TLS, timeouts, or an
// error status. Fetches are not retried.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d %s for url: %s", e.StatusCode, statusText(e.StatusCode), e.URL)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func statusText(code int) string {
	if code >= 500 {
		return "Server Error: " + http.StatusText(code)
	}
	return "Client Error: " + http.StatusText(code)
}

// NormalizeURL trims the input and defaults the scheme to https.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// Fetcher retrieves pages with a fixed timeout and no retries.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	allowPrivate bool
	logger       func(context.Context) *slog.Logger
	onFailure    func()
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the configured fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithLogger sets how a request-scoped logger is obtained.
func WithLogger(fn func(context.Context) *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = fn }
}

// WithFailureHook is called once for every failed fetch.
func WithFailureHook(fn func()) Option {
	return func(f *Fetcher) { f.onFailure = fn }
}

// New builds a Fetcher from the server configuration.
func New(cfg *config.ServerConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:    cfg.UserAgent,
		maxBytes:     cfg.MaxPageBytes,
		allowPrivate: cfg.AllowPrivateHosts,
		logger:       func(context.Context) *slog.Logger { return slog.Default() },
		onFailure:    func() {},
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !f.allowPrivate {
		dialer.Control = guardAddress
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	maxRedirects := cfg.MaxRedirects
	f.client = &http.Client{
		Timeout:   time.Duration(cfg.FetchTimeout),
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return f.checkHost(req.URL)
		},
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// guardAddress runs on every dial with the resolved ip:port, so hostnames
// that resolve to internal addresses are refused too.
func guardAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if util.IsPrivateIP(host) {
		return fmt.Errorf("%w: resolved address %s", ErrHostNotAllowed, host)
	}
	return nil
}

func (f *Fetcher) checkHost(u *url.URL) error {
	if f.allowPrivate {
		return nil
	}
	if host := u.Hostname(); host == "" || util.IsPrivateHost(host) {
		return fmt.Errorf("%w: %q", ErrHostNotAllowed, host)
	}
	return nil
}

func (f *Fetcher) fail(err *Error) (*Page, error) {
	f.onFailure()
	return nil, err
}

// Fetch GETs pageURL. Any transport failure or error status is an *Error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	logger := f.logger(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return f.fail(&Error{URL: pageURL, Err: err})
	}
	if err := f.checkHost(req.URL); err != nil {
		return f.fail(&Error{URL: pageURL, Err: err})
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		logger.Warn("page fetch failed", "url", pageURL, "error", err)
		return f.fail(&Error{URL: pageURL, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.Warn("page fetch returned error status", "url", pageURL, "status", resp.StatusCode)
		return f.fail(&Error{URL: pageURL, StatusCode: resp.StatusCode})
	}

	// Read one byte past the limit to know whether the page was cut short
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return f.fail(&Error{URL: pageURL, Err: fmt.Errorf("read body: %w", err)})
	}
	truncated := int64(len(body)) > f.maxBytes
	if truncated {
		body = body[:f.maxBytes]
		logger.Debug("page body truncated", "url", pageURL, "limit", f.maxBytes)
	}

	logger.Debug("page fetched",
		"url", pageURL,
		"final_url", resp.Request.URL.String(),
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Page{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}
