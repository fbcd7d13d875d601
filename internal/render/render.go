// Package render formats audit reports for people: Markdown, sanitized HTML
// and plain text. JSON encoding is left to the callers.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"a11y-server/internal/audit"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Table))

	// Report messages embed attribute values taken from the audited page.
	policy = bluemonday.UGCPolicy()
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Markdown renders the report as a Markdown document.
func Markdown(r audit.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Accessibility report for %s\n\n", escapeMarkdown(r.URL))
	fmt.Fprintf(&b, "**Score:** %.1f / 10 (%s)\n\n", r.Score, audit.Rating(r.Score))

	b.WriteString("| Critical | Warnings | Passed |\n")
	b.WriteString("|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", r.Summary.Critical, r.Summary.Warnings, r.Summary.Passed)

	writeIssues(&b, "Critical issues", r.Issues.Critical, r.Summary.Critical)
	writeIssues(&b, "Warnings", r.Issues.Warnings, r.Summary.Warnings)

	b.WriteString("## Passed checks\n\n")
	if len(r.Passed) == 0 {
		b.WriteString("None.\n\n")
	}
	for _, p := range r.Passed {
		fmt.Fprintf(&b, "- **%s**: %s\n", p.Kind, escapeMarkdown(p.Message))
	}
	writeHidden(&b, len(r.Passed), r.Summary.Passed)

	return b.String()
}

func writeIssues(b *strings.Builder, title string, issues []audit.Issue, total int) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(issues) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, issue := range issues {
		fmt.Fprintf(b, "- **%s**: %s\n", issue.Kind, escapeMarkdown(issue.Message))
	}
	writeHidden(b, len(issues), total)
}

func writeHidden(b *strings.Builder, shown, total int) {
	if total > shown {
		fmt.Fprintf(b, "\n_%d more not shown._\n", total-shown)
	}
	b.WriteString("\n")
}

// HTML converts the Markdown rendering to a sanitized HTML fragment.
func HTML(r audit.Report) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

var (
	urlStyle      = color.New(color.Bold)
	criticalStyle = color.New(color.FgRed, color.Bold)
	warningStyle  = color.New(color.FgYellow)
	passStyle     = color.New(color.FgGreen)
)

// scoreStyle colors the score line by rating band.
func scoreStyle(score float64) *color.Color {
	switch {
	case score >= 8:
		return passStyle
	case score >= 4:
		return warningStyle
	default:
		return criticalStyle
	}
}

// Text writes a terse plain-text summary, one finding per line. Colors are
// added only when color output is enabled (see color.NoColor).
func Text(w io.Writer, r audit.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", urlStyle.Sprint(r.URL))
	fmt.Fprintf(&b, "  %s: %d critical, %d warnings, %d passed\n",
		scoreStyle(r.Score).Sprintf("score %.1f/10 (%s)", r.Score, audit.Rating(r.Score)),
		r.Summary.Critical, r.Summary.Warnings, r.Summary.Passed)
	for _, issue := range r.Issues.Critical {
		fmt.Fprintf(&b, "  %s %s\n", criticalStyle.Sprint("[CRITICAL]"), issue.Message)
	}
	for _, issue := range r.Issues.Warnings {
		fmt.Fprintf(&b, "  %s  %s\n", warningStyle.Sprint("[WARNING]"), issue.Message)
	}
	for _, p := range r.Passed {
		fmt.Fprintf(&b, "  %s     %s\n", passStyle.Sprint("[PASS]"), p.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
