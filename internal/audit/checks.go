package audit

import (
	"fmt"
	"strings"

	"a11y-server/internal/dom"
)

// Check is one rule of the registry. Run must only read the tree.
type Check struct {
	Name string
	Kind Kind
	Run  func(dom.Tree) Outcome
}

// DefaultRegistry returns the rules in the order they are evaluated and
// reported. A fresh slice is returned on every call.
func DefaultRegistry() []Check {
	return []Check{
		{Name: "images", Kind: KindImageAlt, Run: CheckImages},
		{Name: "buttons", Kind: KindButtonLabel, Run: CheckButtons},
		{Name: "links", Kind: KindVagueLink, Run: CheckLinks},
		{Name: "forms", Kind: KindFormLabel, Run: CheckFormLabels},
		{Name: "headings", Kind: KindHeadings, Run: CheckHeadings},
		{Name: "language", Kind: KindLanguage, Run: CheckLanguage},
	}
}

const maxSrcLen = 100

// vagueLinkTexts are compared against the lower-cased, trimmed link text.
var vagueLinkTexts = map[string]bool{
	"click here": true,
	"read more":  true,
	"here":       true,
	"more":       true,
	"link":       true,
}

// Input types that never need a label.
var unlabelledInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
}

// CheckImages reports every img without a usable alt attribute.
func CheckImages(tree dom.Tree) Outcome {
	var out Outcome
	for _, img := range tree.FindAll("img") {
		if alt, ok := img.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			continue
		}
		src, ok := img.Attr("src")
		if !ok {
			src = "unknown"
		}
		out.Issues = append(out.Issues, criticalIssue(KindImageAlt,
			"Image missing alt text: "+truncateRunes(src, maxSrcLen)))
	}
	return out
}

// CheckButtons reports buttons that have no accessible name.
func CheckButtons(tree dom.Tree) Outcome {
	var out Outcome
	for _, btn := range tree.FindAll("button") {
		if btn.Text() != "" || hasAriaName(btn) {
			continue
		}
		out.Issues = append(out.Issues, criticalIssue(KindButtonLabel,
			"Button without accessible label found"))
	}
	return out
}

// CheckLinks warns about anchors whose whole text is a generic phrase.
func CheckLinks(tree dom.Tree) Outcome {
	var out Outcome
	for _, link := range tree.FindAll("a") {
		text := strings.ToLower(link.Text())
		if !vagueLinkTexts[text] {
			continue
		}
		out.Issues = append(out.Issues, warningIssue(KindVagueLink,
			`Link with vague text: "`+text+`"`))
	}
	return out
}

// CheckFormLabels verifies that form controls are labelled, either by a
// label[for] pointing at their id or by ARIA attributes.
func CheckFormLabels(tree dom.Tree) Outcome {
	var out Outcome
	for _, control := range tree.FindAll("input", "textarea", "select") {
		inputType, ok := control.Attr("type")
		if !ok {
			inputType = "text"
		}
		if unlabelledInputTypes[inputType] {
			continue
		}

		labelled := false
		if id, _ := control.Attr("id"); id != "" {
			if _, found := tree.FindFirst("label", "for", id); found {
				labelled = true
				out.Passed = append(out.Passed, passedCheck(KindFormLabel,
					"Form label properly associated"))
			}
		}

		if !labelled && !hasAriaName(control) {
			out.Issues = append(out.Issues, criticalIssue(KindFormLabel,
				"Form input without associated label"))
		}
	}
	return out
}

// CheckHeadings produces exactly one finding: a pass with the heading count,
// or a warning when the page has none.
func CheckHeadings(tree dom.Tree) Outcome {
	n := len(tree.FindAll("h1", "h2", "h3", "h4", "h5", "h6"))
	if n == 0 {
		return Outcome{Issues: []Issue{warningIssue(KindHeadings, "No semantic headings found")}}
	}
	return Outcome{Passed: []PassedCheck{
		passedCheck(KindHeadings, fmt.Sprintf("Found %d semantic headings", n)),
	}}
}

// CheckLanguage produces exactly one finding for the root lang attribute.
func CheckLanguage(tree dom.Tree) Outcome {
	if root, ok := tree.Root(); ok {
		if lang, _ := root.Attr("lang"); lang != "" {
			return Outcome{Passed: []PassedCheck{passedCheck(KindLanguage, "Page language attribute set")}}
		}
	}
	return Outcome{Issues: []Issue{warningIssue(KindLanguage, "Missing language attribute")}}
}

// hasAriaName reports whether aria-label or aria-labelledby is non-empty.
func hasAriaName(el dom.Element) bool {
	if v, _ := el.Attr("aria-label"); v != "" {
		return true
	}
	v, _ := el.Attr("aria-labelledby")
	return v != ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
