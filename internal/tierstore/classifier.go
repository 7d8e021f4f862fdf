// Classifier mirrors memory/vector_store.go's DetectCategory keyword
// classifier shape, generalised from its flat category list to the tiered
// routing rules the specification names.
package tierstore

import (
	"strings"

	"github.com/coldforge/membrain/internal/record"
)

// Classify chooses a tier for a record based on its content and context,
// per the ordered rule list: Procedural, then Semantic, then Episodic
// (explicit markers or non-empty context), defaulting to Episodic.
func Classify(content, context string) record.Tier {
	lower := strings.ToLower(content)

	proceduralMarkers := []string{"pattern:", "how to ", "always ", "never "}
	if strings.Contains(lower, "when ") && strings.Contains(lower, " then ") {
		return record.TierProcedural
	}
	for _, m := range proceduralMarkers {
		if strings.Contains(lower, m) {
			return record.TierProcedural
		}
	}

	semanticMarkers := []string{" is ", " are ", " means ", "definition:", "fact:"}
	for _, m := range semanticMarkers {
		if strings.Contains(lower, m) {
			return record.TierSemantic
		}
	}

	episodicMarkers := []string{"yesterday", "today", "last ", "just now", "earlier"}
	for _, m := range episodicMarkers {
		if strings.Contains(lower, m) {
			return record.TierEpisodic
		}
	}
	if context != "" {
		return record.TierEpisodic
	}

	return record.TierEpisodic
}

// ConsolidationWorthy reports whether r should be migrated out of Working
// at the next sleep tick: emotional, strong, or frequently accessed.
func ConsolidationWorthy(r *record.Record) bool {
	return r.Emotion != record.EmotionNeutral || r.Strength >= 0.6 || r.AccessCount >= 3
}
