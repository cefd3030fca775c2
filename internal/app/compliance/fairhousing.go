// Package compliance screens generated listing copy against Federal Fair
// Housing Act requirements. A violation in generated output is a
// content-class failure: regenerating on another provider would reproduce
// it, so the pipeline surfaces it instead of falling back.
package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/listinggopher/listinggopher/internal/infra/observability"
)

// Violation is one matched prohibited pattern group.
type Violation struct {
	Category   string   `json:"category"`
	Matches    []string `json:"matches"`
	Severity   string   `json:"severity"` // "high" or "medium"
	Suggestion string   `json:"suggestion"`
}

// Result of a fair-housing check.
type Result struct {
	Compliant  bool        `json:"is_compliant"`
	Violations []Violation `json:"violations,omitempty"`
	Message    string      `json:"message"`
}

// patternGroup holds the prohibited patterns for one protected class.
type patternGroup struct {
	category   string
	severity   string
	suggestion string
	patterns   []*regexp.Regexp
}

func mustGroup(category, severity, suggestion string, exprs ...string) patternGroup {
	g := patternGroup{category: category, severity: severity, suggestion: suggestion}
	for _, e := range exprs {
		g.patterns = append(g.patterns, regexp.MustCompile(`(?i)\b(?:`+e+`)\b`))
	}
	return g
}

// Prohibited patterns organized by protected class.
var groups = []patternGroup{
	mustGroup("familial_status", "high",
		"Describe the property features instead (e.g., '4 bedrooms' rather than 'perfect for families')",
		`adults?\s+only`,
		`no\s+(?:children|kids)`,
		`(?:perfect|ideal|great)\s+for\s+couples?`,
		`mature\s+(?:individual|person|couple|adult)s?`,
		`empty\s+nesters?`,
		`singles?\s+only`,
		`adult\s+(?:community|living|building|complex)`,
		`(?:great|perfect|ideal)\s+for\s+famil(?:y|ies)`,
		`(?:growing|young)\s+famil(?:y|ies)`,
		`married\s+couples?`,
		`newlyweds?`,
	),
	mustGroup("religion", "high",
		"Remove religious references. Focus on nearby amenities like parks, shops, transit.",
		`(?:near|close\s+to)\s+(?:church(?:es)?|synagogue|temple|mosque)`,
		`walking\s+distance\s+to\s+(?:church|synagogue|temple|mosque)`,
		`(?:christian|jewish|catholic|muslim|religious)\s+(?:community|neighborhood|area)`,
	),
	mustGroup("race_ethnicity", "high",
		"Remove all racial/ethnic references. Describe property features and amenities only.",
		`(?:white|black|asian|hispanic|latino)\s+(?:community|neighborhood|area)`,
		`caucasian`,
		`african[\s-]american\s+(?:community|neighborhood|area)`,
		`(?:integrated|diverse|ethnic)\s+(?:community|neighborhood|area|enclave)`,
		`exclusively\s+\w+\s+neighborhood`,
	),
	mustGroup("disability", "high",
		"Remove disability references. Describe accessibility features factually if present.",
		`no\s+wheelchairs?`,
		`able[\s-]bodied`,
		`healthy\s+only`,
		`no\s+disabled`,
	),
	mustGroup("national_origin", "medium",
		"Remove nationality references. Describe the property, not the people expected to live there.",
		`(?:american|english[\s-]speaking)\s+(?:only|preferred)`,
		`no\s+(?:foreigners?|immigrants?)`,
		`(?:chinese|indian|mexican|korean)\s+(?:community|neighborhood|area)`,
	),
}

// Check screens text and reports every violation found.
func Check(text string) Result {
	var violations []Violation
	for _, g := range groups {
		var matches []string
		for _, p := range g.patterns {
			matches = append(matches, p.FindAllString(text, -1)...)
		}
		if len(matches) == 0 {
			continue
		}
		observability.ComplianceViolations.WithLabelValues(g.category).Inc()
		violations = append(violations, Violation{
			Category:   g.category,
			Matches:    matches,
			Severity:   g.severity,
			Suggestion: g.suggestion,
		})
	}

	if len(violations) == 0 {
		return Result{Compliant: true, Message: "content is Fair Housing compliant"}
	}
	var cats []string
	for _, v := range violations {
		cats = append(cats, v.Category)
	}
	return Result{
		Compliant:  false,
		Violations: violations,
		Message:    fmt.Sprintf("fair housing violations found: %s", strings.Join(cats, ", ")),
	}
}
