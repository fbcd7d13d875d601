package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func getReportPage(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	path := "/html/report"
	if target != "" {
		path += "?url=" + url.QueryEscape(target)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHTMLReportForm(t *testing.T) {
	h := newTestServer(t, nil)

	rec := getReportPage(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<form method="GET" action="/html/report">`) {
		t.Error("missing URL form")
	}
	if strings.Contains(body, "Accessibility report for") {
		t.Error("form page should not contain a report")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Errorf("CSP = %q", rec.Header().Get("Content-Security-Policy"))
	}
}

func TestHTMLReportRendersFindings(t *testing.T) {
	h := newTestServer(t, nil)
	upstream, _ := newUpstream(t)

	rec := getReportPage(t, h, upstream.URL)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Accessibility report for",
		"Image missing alt text: /logo.png",
		"click here",
		"<table>",
		`src="data:image/png;base64,`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLReportShowsFetchError(t *testing.T) {
	h := newTestServer(t, nil)
	upstream, _ := newUpstream(t)

	rec := getReportPage(t, h, upstream.URL+"/missing")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to fetch URL: 404 Client Error") {
		t.Error("page missing fetch error message")
	}
}

func TestGenerateQRCodeDataURL(t *testing.T) {
	got := generateQRCodeDataURL("https://example.com")
	if !strings.HasPrefix(got, "data:image/png;base64,") || len(got) < 100 {
		t.Errorf("unexpected data URL %q", got)
	}
}
