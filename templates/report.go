package templates

// Report page - URL form, plus the rendered report once a URL is given.
// The "content" block receives sanitized HTML from the renderer.

func GetReportTemplate() string {
	return reportBaseTemplate + reportContent
}

var reportBaseTemplate = `{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} - Accessibility Checker</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
    table { border-collapse: collapse; }
    th, td { border: 1px solid #999; padding: 0.25rem 0.75rem; }
    .error { color: #a00; }
    .qr-code { width: 160px; height: 160px; }
  </style>
</head>
<body>
  <header><h1><a href="/html/report">Accessibility Checker</a></h1></header>
  <main id="main">
    {{template "content" .}}
  </main>
</body>
</html>
{{end}}`

var reportContent = `{{define "content"}}
<form method="GET" action="/html/report">
  <label for="url">Page URL</label>
  <input type="text" id="url" name="url" value="{{.URL}}" placeholder="example.com" required>
  <button type="submit">Check</button>
</form>

{{if .Error}}
<p class="error" role="alert">{{.Error}}</p>
{{end}}

{{if .ReportHTML}}
<section aria-label="Report">
  {{.ReportHTML}}
</section>
{{if .QRCodeDataURL}}
<figure>
  <img src="{{.QRCodeDataURL}}" alt="QR code linking to {{.URL}}" class="qr-code" loading="lazy">
  <figcaption>Open the audited page on another device</figcaption>
</figure>
{{end}}
{{end}}
{{end}}`
