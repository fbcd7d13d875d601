package main

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"

	"a11y-server/internal/fetch"
	"a11y-server/internal/render"
	"a11y-server/internal/util"
	"a11y-server/templates"
)

var reportTemplate *template.Template

// ReportPageData is passed to the report page template
type ReportPageData struct {
	Title         string
	URL           string
	Error         string
	ReportHTML    template.HTML
	QRCodeDataURL template.URL
}

func initReportTemplates() {
	reportTemplate = util.MustCompileTemplate("report", nil, templates.GetReportTemplate())
}

func generateQRCodeDataURL(content string) string {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		slog.Error("failed to generate QR code", "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// htmlReportHandler shows the URL form, and the report when ?url= is set.
func htmlReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := ReportPageData{Title: "Check a page"}
	status := http.StatusOK

	if raw := strings.TrimSpace(r.URL.Query().Get("url")); raw != "" {
		target := fetch.NormalizeURL(raw)
		data.URL = target
		data.Title = "Report for " + target

		if !allowRequest(w, r) {
			return
		}

		report, err := auditor.Audit(r.Context(), target)
		if err != nil {
			status, data.Error = auditErrorMessage(err)
			if status >= 500 {
				LoggerFromContext(r.Context()).Error("audit failed", "error", err)
			}
		} else {
			fragment, err := render.HTML(report)
			if err != nil {
				LoggerFromContext(r.Context()).Error("failed to render report", "error", err)
				http.Error(w, "Error rendering page", http.StatusInternalServerError)
				return
			}
			// Sanitized by render.HTML
			data.ReportHTML = template.HTML(fragment)
			data.QRCodeDataURL = template.URL(generateQRCodeDataURL(target))
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.ExecuteTemplate(&buf, "base", data); err != nil {
		LoggerFromContext(r.Context()).Error("error rendering report page", "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	util.SetHTMLHeaders(w, "0")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
