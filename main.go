package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"a11y-server/internal/config"
	"a11y-server/internal/signing"
)

// Request body size limits
const (
	maxBodySize = 32 * 1024 // 32KB for POST requests
)

// limitBody wraps an HTTP handler to limit request body size
func limitBody(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// securityHeaders wraps an HTTP handler to add security headers
func securityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// - img-src data:: the share QR code is inlined as a data URL
		// - style-src 'unsafe-inline': the report page carries its own styles
		csp := "default-src 'self'; " +
			"img-src 'self' data:; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'none'"
		w.Header().Set("Content-Security-Policy", csp)

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer policy - don't leak full URLs to external sites
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// newRouter registers every endpoint on a fresh mux.
func newRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", withCORS(indexHandler))
	mux.HandleFunc("/api/check", withCORS(limitBody(checkHandler, maxBodySize)))
	mux.HandleFunc("/check", withCORS(limitBody(checkHandler, maxBodySize)))
	mux.HandleFunc("/api/health", withCORS(healthHandler))
	mux.HandleFunc("/health", withCORS(healthHandler))
	mux.HandleFunc("/metrics", metricsHandler)

	mux.HandleFunc("/html/report", securityHeaders(htmlReportHandler))
	mux.HandleFunc("/ws/check", liveCheckHandler)

	return RequestLoggingMiddleware(mux)
}

// setup builds the process-wide auditor and signer from cfg.
func setup(cfg *config.ServerConfig) error {
	if err := InitCaches(cfg); err != nil {
		return err
	}
	auditor = NewAuditor(newFetcher(cfg), NewReportCache(cacheBackend, cacheConfig.ReportTTL))

	reportSigner = nil
	if cfg.SigningSecret != "" {
		signer, err := signing.NewSigner(cfg.SigningSecret)
		if err != nil {
			return err
		}
		reportSigner = signer
		slog.Info("report signing enabled", "pubkey", signer.PublicKey())
	}
	return nil
}

func main() {
	cfg := config.GetServerConfig()
	InitLogger(cfg.LogLevel)

	if err := setup(cfg); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	initReportTemplates()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP reloads limits and fetch settings; SIGINT/SIGTERM shut down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				config.ReloadServerConfig()
				auditor.SetFetcher(newFetcher(config.GetServerConfig()))
				continue
			}
			slog.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("graceful shutdown failed", "error", err)
			}
			cancel()
			return
		}
	}()

	slog.Info("starting server", "port", cfg.Port, "cache", cacheBackendType)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	if err := cacheBackend.Close(); err != nil {
		slog.Warn("cache close failed", "error", err)
	}
	slog.Info("server stopped")
}
