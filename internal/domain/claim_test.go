package domain

import "testing"

func TestValidPredicate(t *testing.T) {
	valid := []string{"USES", "VERSION_OF", "FIXED_BY", "A", "B2", "ORIGINATES_AT"}
	for _, p := range valid {
		if !ValidPredicate(p) {
			t.Errorf("ValidPredicate(%q) = false, want true", p)
		}
	}

	invalid := []string{"", "uses", "Uses", "1USES", "_USES", "USES-X", "USES X", " USES"}
	for _, p := range invalid {
		if ValidPredicate(p) {
			t.Errorf("ValidPredicate(%q) = true, want false", p)
		}
	}
}

func TestValidObjectKind(t *testing.T) {
	valid := []string{"entity", "literal"}
	for _, k := range valid {
		if !ValidObjectKind(k) {
			t.Errorf("ValidObjectKind(%q) = false, want true", k)
		}
	}

	invalid := []string{"", "edge", "Entity", "LITERAL", "node"}
	for _, k := range invalid {
		if ValidObjectKind(k) {
			t.Errorf("ValidObjectKind(%q) = true, want false", k)
		}
	}
}

func TestValidClaimStatus(t *testing.T) {
	valid := []string{"scratchpad", "pending", "approved", "rejected"}
	for _, s := range valid {
		if !ValidClaimStatus(s) {
			t.Errorf("ValidClaimStatus(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "merged", "Pending", "APPROVED", "draft"}
	for _, s := range invalid {
		if ValidClaimStatus(s) {
			t.Errorf("ValidClaimStatus(%q) = true, want false", s)
		}
	}
}
