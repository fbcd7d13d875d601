// Package audit runs the accessibility rules over a parsed page and turns
// their findings into a scored, bounded report.
package audit

import (
	"a11y-server/internal/dom"
)

// MaxDisplayItems bounds each list shown in a Report. Summary counts are
// never truncated.
const MaxDisplayItems = 10

// Findings is the concatenated output of every rule, in registry order.
type Findings struct {
	Issues []Issue
	Passed []PassedCheck
}

// Observer is notified after each rule runs.
type Observer func(Check, Outcome)

// Collect runs checks in order over tree and concatenates their results.
func Collect(tree dom.Tree, checks []Check, observers ...Observer) Findings {
	var f Findings
	for _, c := range checks {
		out := c.Run(tree)
		f.Issues = append(f.Issues, out.Issues...)
		f.Passed = append(f.Passed, out.Passed...)
		for _, observe := range observers {
			observe(c, out)
		}
	}
	return f
}

// BySeverity returns the issues of one severity, preserving order.
func (f Findings) BySeverity(s Severity) []Issue {
	matched := make([]Issue, 0, len(f.Issues))
	for _, issue := range f.Issues {
		if issue.Severity == s {
			matched = append(matched, issue)
		}
	}
	return matched
}

// Summary holds the true, untruncated counts.
type Summary struct {
	Critical int `json:"critical"`
	Warnings int `json:"warnings"`
	Passed   int `json:"passed"`
}

// IssueLists are the truncated display views of the issues.
type IssueLists struct {
	Critical []Issue `json:"critical"`
	Warnings []Issue `json:"warnings"`
}

// Report is the result of auditing one page.
type Report struct {
	URL     string        `json:"url"`
	Score   float64       `json:"score"`
	Summary Summary       `json:"summary"`
	Issues  IssueLists    `json:"issues"`
	Passed  []PassedCheck `json:"passed"`
}

// Assemble partitions, counts, scores and truncates findings into a Report.
func Assemble(url string, f Findings) Report {
	criticals := f.BySeverity(SeverityCritical)
	warnings := f.BySeverity(SeverityWarning)

	summary := Summary{
		Critical: len(criticals),
		Warnings: len(warnings),
		Passed:   len(f.Passed),
	}

	return Report{
		URL:     url,
		Score:   Score(summary.Critical, summary.Warnings, summary.Passed),
		Summary: summary,
		Issues: IssueLists{
			Critical: firstN(criticals, MaxDisplayItems),
			Warnings: firstN(warnings, MaxDisplayItems),
		},
		Passed: firstN(f.Passed, MaxDisplayItems),
	}
}

// Audit runs the default registry over tree and assembles the report.
func Audit(url string, tree dom.Tree, observers ...Observer) Report {
	return Assemble(url, Collect(tree, DefaultRegistry(), observers...))
}

// firstN copies at most n leading elements. The result is never nil so that
// empty lists encode as [] rather than null.
func firstN[T any](items []T, n int) []T {
	if len(items) < n {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}
