package compliance

import (
	"strings"
	"testing"
)

func TestCheckCompliant(t *testing.T) {
	texts := []string{
		"Stunning 4-bedroom craftsman with hardwood floors and a chef's kitchen.",
		"Walking distance to parks, shops, and light rail.",
		"Wheelchair-accessible entry and a zero-step shower in the primary bath.",
		"",
	}
	for _, text := range texts {
		res := Check(text)
		if !res.Compliant {
			t.Errorf("Check(%q) flagged: %s", text, res.Message)
		}
		if len(res.Violations) != 0 {
			t.Errorf("Check(%q) returned violations: %+v", text, res.Violations)
		}
	}
}

func TestCheckViolations(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category string
		severity string
	}{
		{"perfect for couples", "This cozy condo is perfect for couples.", "familial_status", "high"},
		{"adults only", "Adults only building with quiet residents.", "familial_status", "high"},
		{"no kids", "No kids allowed in the complex.", "familial_status", "high"},
		{"empty nesters", "Ideal downsize for empty nesters.", "familial_status", "high"},
		{"near church", "Charming bungalow near churches and cafes.", "religion", "high"},
		{"religious community", "Located in a quiet Christian community.", "religion", "high"},
		{"ethnic neighborhood", "Set in a diverse neighborhood with great food.", "race_ethnicity", "high"},
		{"able bodied", "Stairs throughout, best for able-bodied buyers.", "disability", "high"},
		{"no foreigners", "No foreigners, references required.", "national_origin", "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.text)
			if res.Compliant {
				t.Fatalf("Check(%q) passed, expected %s violation", tt.text, tt.category)
			}
			var hit *Violation
			for i := range res.Violations {
				if res.Violations[i].Category == tt.category {
					hit = &res.Violations[i]
				}
			}
			if hit == nil {
				t.Fatalf("no %s violation in %+v", tt.category, res.Violations)
			}
			if hit.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", hit.Severity, tt.severity)
			}
			if len(hit.Matches) == 0 {
				t.Error("violation carries no matched text")
			}
			if hit.Suggestion == "" {
				t.Error("violation carries no suggestion")
			}
			if !strings.Contains(res.Message, tt.category) {
				t.Errorf("message %q does not name category %s", res.Message, tt.category)
			}
		})
	}
}

func TestCheckCaseInsensitive(t *testing.T) {
	res := Check("PERFECT FOR COUPLES seeking a starter home.")
	if res.Compliant {
		t.Fatal("uppercase text slipped past the patterns")
	}
}

func TestCheckMultipleCategories(t *testing.T) {
	res := Check("Perfect for couples, near church, in an adult community.")
	if res.Compliant {
		t.Fatal("expected violations")
	}
	seen := map[string]bool{}
	for _, v := range res.Violations {
		seen[v.Category] = true
	}
	for _, cat := range []string{"familial_status", "religion"} {
		if !seen[cat] {
			t.Errorf("missing %s violation, got %+v", cat, res.Violations)
		}
	}
}

// Word boundaries keep legitimate copy from tripping the patterns.
func TestCheckWordBoundaries(t *testing.T) {
	texts := []string{
		"The temperature stays comfortable year-round.", // "temple" substring
		"Newly weatherized windows throughout.",
	}
	for _, text := range texts {
		if res := Check(text); !res.Compliant {
			t.Errorf("Check(%q) false positive: %s", text, res.Message)
		}
	}
}
