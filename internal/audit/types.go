package audit

import "fmt"

// Kind identifies which rule produced a finding.
type Kind int

const (
	KindImageAlt Kind = iota + 1
	KindButtonLabel
	KindVagueLink
	KindFormLabel
	KindHeadings
	KindLanguage
)

var kindNames = map[Kind]string{
	KindImageAlt:    "image",
	KindButtonLabel: "button",
	KindVagueLink:   "link",
	KindFormLabel:   "form",
	KindHeadings:    "heading",
	KindLanguage:    "language",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown finding kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown finding kind %q", b)
}

// Severity classifies an issue.
type Severity int

const (
	// SeverityCritical blocks usage for assistive-technology users.
	SeverityCritical Severity = iota + 1
	// SeverityWarning degrades quality without blocking.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityCritical, SeverityWarning:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown severity %d", int(s))
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "critical":
		*s = SeverityCritical
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Issue is a defect reported by a rule.
type Issue struct {
	Kind     Kind     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// PassedCheck is a positive finding. It never carries a severity.
type PassedCheck struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
}

// Outcome is what a single rule returns. Either slice may be empty.
type Outcome struct {
	Issues []Issue
	Passed []PassedCheck
}

func criticalIssue(kind Kind, msg string) Issue {
	return Issue{Kind: kind, Severity: SeverityCritical, Message: msg}
}

func warningIssue(kind Kind, msg string) Issue {
	return Issue{Kind: kind, Severity: SeverityWarning, Message: msg}
}

func passedCheck(kind Kind, msg string) PassedCheck {
	return PassedCheck{Kind: kind, Message: msg}
}
