package util

import (
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
)

// =============================================================================
// Template Compilation Helpers
// =============================================================================

// MustCompileTemplate compiles a template with the given name and content.
// Exits the process if compilation fails; templates are compiled at startup.
func MustCompileTemplate(name string, funcs template.FuncMap, content string) *template.Template {
	t, err := template.New(name).Funcs(funcs).Parse(content)
	if err != nil {
		slog.Error("failed to compile template", "template", name, "error", err)
		os.Exit(1)
	}
	return t
}

// =============================================================================
// Host Validation Helpers
// =============================================================================

// IsInternalHost checks if a hostname is internal/private and should not be accessed.
// Used to prevent SSRF attacks by blocking requests to internal networks.
func IsInternalHost(host string) bool {
	host = strings.ToLower(host)
	return strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") ||
		strings.HasSuffix(host, ".onion") ||
		strings.HasSuffix(host, ".localhost")
}

// IsLoopbackHost checks if a hostname resolves to localhost.
func IsLoopbackHost(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		host == "[::1]"
}

// IsPrivateIP reports whether host is a literal IP in a private, link-local
// or unspecified range.
func IsPrivateIP(host string) bool {
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() || ip.IsLoopback()
}

// IsPrivateHost checks if a host should be blocked for security reasons.
func IsPrivateHost(host string) bool {
	return IsInternalHost(host) || IsLoopbackHost(host) || IsPrivateIP(host)
}

// =============================================================================
// Request Helpers
// =============================================================================

// ClientIP returns the caller's address, preferring the first
// X-Forwarded-For hop when running behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
