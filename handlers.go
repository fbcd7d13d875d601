package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"a11y-server/internal/audit"
	"a11y-server/internal/config"
	"a11y-server/internal/fetch"
	"a11y-server/internal/signing"
	"a11y-server/internal/util"
)

var (
	auditor      *Auditor
	reportSigner *signing.Signer // nil when signing is disabled
)

// CheckRequest is the body accepted by the check endpoints.
type CheckRequest struct {
	URL string `json:"url"`
}

// withCORS allows any origin and answers preflight requests.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// checkHandler serves both POST /api/check and POST /check.
func checkHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		util.RespondMethodNotAllowed(w, "Method not allowed")
		return
	}

	target, err := parseCheckRequest(r)
	if err != nil {
		util.RespondBadRequest(w, err.Error())
		return
	}

	if !allowRequest(w, r) {
		return
	}

	report, err := auditor.Audit(r.Context(), target)
	if err != nil {
		respondAuditError(w, r, err)
		return
	}
	writeReport(w, report)
}

// parseCheckRequest decodes the body and returns the normalized URL.
func parseCheckRequest(r *http.Request) (string, error) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", &InputError{Message: "Request body too large"}
		}
		return "", &InputError{Message: "Invalid JSON body"}
	}
	if strings.TrimSpace(req.URL) == "" {
		return "", &InputError{Message: ErrURLRequired.Error()}
	}
	return fetch.NormalizeURL(req.URL), nil
}

// allowRequest applies the per-client rate limit. It writes the 429 itself.
func allowRequest(w http.ResponseWriter, r *http.Request) bool {
	limit := config.GetServerConfig().RateLimitPerMinute
	if limit <= 0 || rateLimitStore == nil {
		return true
	}

	allowed, remaining, err := rateLimitStore.Allow(r.Context(), "check:"+util.ClientIP(r), limit, cacheConfig.RateLimitWindow)
	if err != nil {
		LoggerFromContext(r.Context()).Warn("rate limit check failed", "error", err)
		return true
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !allowed {
		rateLimitedTotal.Add(1)
		w.Header().Set("Retry-After", strconv.Itoa(int(cacheConfig.RateLimitWindow/time.Second)))
		util.RespondTooManyRequests(w, "Too many requests")
		return false
	}
	return true
}

// auditErrorMessage maps an audit failure to its status and client message.
func auditErrorMessage(err error) (int, string) {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return http.StatusBadRequest, "Failed to fetch URL: " + fetchErr.Error()
	}
	return http.StatusInternalServerError, "An error occurred: " + err.Error()
}

func respondAuditError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := auditErrorMessage(err)
	if status >= 500 {
		LoggerFromContext(r.Context()).Error("audit failed", "error", err)
	}
	util.RespondJSONError(w, status, msg)
}

// writeReport encodes the report and signs the exact bytes sent.
func writeReport(w http.ResponseWriter, report audit.Report) {
	body, err := json.Marshal(report)
	if err != nil {
		util.RespondInternalError(w, "An error occurred: "+err.Error())
		return
	}

	if reportSigner != nil {
		sig, err := reportSigner.Sign(body)
		if err != nil {
			util.RespondInternalError(w, "An error occurred: "+err.Error())
			return
		}
		w.Header().Set("X-Report-Signature", sig)
		w.Header().Set("X-Report-Pubkey", reportSigner.PublicKey())
	}

	util.WriteJSONBytes(w, http.StatusOK, body)
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		util.RespondJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Accessibility Checker API",
		"status":  "running",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"cache":  cacheBackendType,
	})
}
