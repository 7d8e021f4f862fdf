package decay

import "testing"

func TestMultiplierRange(t *testing.T) {
	p := Params{AccessCount: 5, Strength: 0.8, AgeDays: 10, SinceAccessDays: 3}
	m := Multiplier(p)
	if m < MinRetention || m > 1 {
		t.Errorf("Multiplier = %v, want in [%v, 1]", m, MinRetention)
	}
}

func TestMultiplierNeverBelowFloor(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.01, AgeDays: 0, SinceAccessDays: 10000}
	if m := Multiplier(p); m < MinRetention {
		t.Errorf("Multiplier = %v, want >= %v", m, MinRetention)
	}
}

func TestUntouchedOldRecordDecaysBelowThreshold(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.5, AgeDays: 31, SinceAccessDays: 31}
	strength := p.Strength
	for i := 0; i < 2; i++ {
		strength *= Multiplier(Params{
			AccessCount:     1,
			Strength:        strength,
			AgeDays:         31,
			SinceAccessDays: 31,
			BaseRate:        0.1,
		})
	}
	if strength >= 0.1 {
		t.Errorf("strength after two decay passes = %v, want < 0.1", strength)
	}
}

func TestNeedsReview(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.5, SinceAccessDays: 100}
	if !NeedsReview(p) {
		t.Error("NeedsReview should be true for a stale, moderately strong record")
	}
}

func TestNeedsReviewFalseWhenWeak(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.2, SinceAccessDays: 100}
	if NeedsReview(p) {
		t.Error("NeedsReview should be false once strength <= 0.3")
	}
}

func TestSemanticMultiplierSofter(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.5, SinceAccessDays: 20}
	if sm, m := SemanticMultiplier(p), Multiplier(p); sm < m {
		t.Errorf("SemanticMultiplier = %v, want >= plain Multiplier %v", sm, m)
	}
}

func TestOptimalReviewHoursAtLeastOne(t *testing.T) {
	p := Params{AccessCount: 1, Strength: 0.001, AgeDays: 0, SinceAccessDays: 0}
	if h := OptimalReviewHours(p); h < 1 {
		t.Errorf("OptimalReviewHours = %v, want >= 1", h)
	}
}
