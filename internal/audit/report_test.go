package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"a11y-server/internal/dom"
)

func TestAuditEndToEnd(t *testing.T) {
	page := parse(t, `<!doctype html>
<html lang="en">
<body>
  <img src="/hero.png">
  <button>Submit</button>
  <a href="/about">here</a>
</body>
</html>`)

	report := Audit("https://example.com", page)

	if report.URL != "https://example.com" {
		t.Errorf("url = %q", report.URL)
	}
	want := Summary{Critical: 1, Warnings: 2, Passed: 1}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}
	if report.Score != 7.0 {
		t.Errorf("score = %v, want 7.0", report.Score)
	}

	if len(report.Issues.Critical) != 1 || report.Issues.Critical[0].Kind != KindImageAlt {
		t.Errorf("critical = %+v", report.Issues.Critical)
	}
	// Registry order: link check runs before the heading check.
	if len(report.Issues.Warnings) != 2 ||
		report.Issues.Warnings[0].Kind != KindVagueLink ||
		report.Issues.Warnings[1].Kind != KindHeadings {
		t.Errorf("warnings = %+v", report.Issues.Warnings)
	}
	if len(report.Passed) != 1 || report.Passed[0].Kind != KindLanguage {
		t.Errorf("passed = %+v", report.Passed)
	}
}

func TestAuditCountsNoscriptContent(t *testing.T) {
	page := parse(t, `<html lang="en"><body><h1>t</h1>`+
		`<noscript><img src="https://tracker.example/px"></noscript>`+
		`<noscript><a href="/js">click here</a></noscript></body></html>`)

	report := Audit("https://example.com", page)

	want := Summary{Critical: 1, Warnings: 1, Passed: 2}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}
	if len(report.Issues.Critical) != 1 ||
		report.Issues.Critical[0].Message != "Image missing alt text: https://tracker.example/px" {
		t.Errorf("critical = %+v", report.Issues.Critical)
	}
	if len(report.Issues.Warnings) != 1 || report.Issues.Warnings[0].Kind != KindVagueLink {
		t.Errorf("warnings = %+v", report.Issues.Warnings)
	}
}

func TestAssembleTruncatesDisplayLists(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html lang="en"><body><h1>t</h1>`)
	for i := 0; i < 13; i++ {
		fmt.Fprintf(&b, `<img src="img-%d.png">`, i)
	}
	for i := 0; i < 12; i++ {
		b.WriteString(`<a href="#">more</a>`)
	}
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, `<label for="f%d">F</label><input id="f%d">`, i, i)
	}
	b.WriteString(`</body></html>`)

	report := Audit("https://example.com", parse(t, b.String()))

	if report.Summary.Critical != 13 || len(report.Issues.Critical) != MaxDisplayItems {
		t.Errorf("critical: summary %d, shown %d", report.Summary.Critical, len(report.Issues.Critical))
	}
	for i, issue := range report.Issues.Critical {
		want := fmt.Sprintf("Image missing alt text: img-%d.png", i)
		if issue.Message != want {
			t.Errorf("critical[%d] = %q, want %q", i, issue.Message, want)
		}
	}
	if report.Summary.Warnings != 12 || len(report.Issues.Warnings) != MaxDisplayItems {
		t.Errorf("warnings: summary %d, shown %d", report.Summary.Warnings, len(report.Issues.Warnings))
	}
	// 11 form passes + heading + language.
	if report.Summary.Passed != 13 || len(report.Passed) != MaxDisplayItems {
		t.Errorf("passed: summary %d, shown %d", report.Summary.Passed, len(report.Passed))
	}
	if report.Score != 0 {
		t.Errorf("score = %v, want 0 after clamping", report.Score)
	}
}

func TestCollectPreservesRegistryOrder(t *testing.T) {
	stub := func(tag string) Check {
		return Check{Name: tag, Kind: KindImageAlt, Run: func(dom.Tree) Outcome {
			return Outcome{
				Issues: []Issue{criticalIssue(KindImageAlt, tag+"-1"), warningIssue(KindImageAlt, tag+"-2")},
				Passed: []PassedCheck{passedCheck(KindImageAlt, tag)},
			}
		}}
	}

	var seen []string
	f := Collect(parse(t, ""), []Check{stub("a"), stub("b")}, func(c Check, _ Outcome) {
		seen = append(seen, c.Name)
	})

	var msgs []string
	for _, issue := range f.Issues {
		msgs = append(msgs, issue.Message)
	}
	if got := strings.Join(msgs, ","); got != "a-1,a-2,b-1,b-2" {
		t.Errorf("issue order = %s", got)
	}
	if got := strings.Join(seen, ","); got != "a,b" {
		t.Errorf("observer order = %s", got)
	}

	crit := f.BySeverity(SeverityCritical)
	if len(crit) != 2 || crit[0].Message != "a-1" || crit[1].Message != "b-1" {
		t.Errorf("critical partition = %+v", crit)
	}
}

func TestReportJSONShape(t *testing.T) {
	report := Audit("https://example.com", parse(t, `<html lang="en"><h1>x</h1></html>`))
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := string(data)
	want := `{"url":"https://example.com","score":10,"summary":{"critical":0,"warnings":0,"passed":2},` +
		`"issues":{"critical":[],"warnings":[]},` +
		`"passed":[{"type":"heading","message":"Found 1 semantic headings"},{"type":"language","message":"Page language attribute set"}]}`
	if got != want {
		t.Errorf("json mismatch\n got: %s\nwant: %s", got, want)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Passed[0].Kind != KindHeadings {
		t.Errorf("decoded kind = %v", decoded.Passed[0].Kind)
	}
}

func TestIssueJSONCarriesSeverity(t *testing.T) {
	data, err := json.Marshal(criticalIssue(KindButtonLabel, "m"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"button","severity":"critical","message":"m"}` {
		t.Errorf("got %s", data)
	}

	if _, err := json.Marshal(Issue{Kind: KindButtonLabel}); err == nil {
		t.Error("expected error for issue without severity")
	}
}
