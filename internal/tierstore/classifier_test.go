package tierstore

import (
	"testing"

	"github.com/coldforge/membrain/internal/record"
)

func TestClassifyProcedural(t *testing.T) {
	cases := []string{
		"when the build fails then check the logs first",
		"pattern: always validate input at the boundary",
		"how to restart the service safely",
		"always commit before rebasing",
		"never force push to main",
	}
	for _, c := range cases {
		if got := Classify(c, ""); got != record.TierProcedural {
			t.Errorf("Classify(%q) = %s, want procedural", c, got)
		}
	}
}

func TestClassifySemantic(t *testing.T) {
	cases := []string{
		"Paris is the capital of France",
		"whales are mammals",
		"definition: a closure captures its enclosing scope",
		"fact: water boils at 100 degrees celsius at sea level",
	}
	for _, c := range cases {
		if got := Classify(c, ""); got != record.TierSemantic {
			t.Errorf("Classify(%q) = %s, want semantic", c, got)
		}
	}
}

func TestClassifyEpisodicMarkersAndContext(t *testing.T) {
	if got := Classify("yesterday I fixed the flaky test", ""); got != record.TierEpisodic {
		t.Errorf("Classify with 'yesterday' = %s, want episodic", got)
	}
	if got := Classify("met with the team", "standup meeting"); got != record.TierEpisodic {
		t.Errorf("Classify with context = %s, want episodic", got)
	}
}

func TestClassifyDefaultsToEpisodic(t *testing.T) {
	if got := Classify("random unremarkable note", ""); got != record.TierEpisodic {
		t.Errorf("Classify default = %s, want episodic", got)
	}
}

func TestConsolidationWorthy(t *testing.T) {
	emotional := record.New("scary event", "", record.TierWorking, record.EmotionNegative, 0)
	if !ConsolidationWorthy(emotional) {
		t.Error("emotional record should be consolidation-worthy")
	}

	strong := record.New("important fact", "", record.TierWorking, record.EmotionNeutral, 0)
	strong.Strength = 0.8
	if !ConsolidationWorthy(strong) {
		t.Error("strong record should be consolidation-worthy")
	}

	rehearsed := record.New("rehearsed note", "", record.TierWorking, record.EmotionNeutral, 0)
	rehearsed.AccessCount = 3
	if !ConsolidationWorthy(rehearsed) {
		t.Error("frequently accessed record should be consolidation-worthy")
	}

	weak := record.New("forgettable", "", record.TierWorking, record.EmotionNeutral, 0)
	weak.Strength = 0.4
	if ConsolidationWorthy(weak) {
		t.Error("weak unremarkable record should not be consolidation-worthy")
	}
}
