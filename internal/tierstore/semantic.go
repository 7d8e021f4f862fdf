package tierstore

import (
	"strings"

	"github.com/coldforge/membrain/internal/record"
)

// SemanticTier wraps a DurableTier with the Semantic tier's dedup-on-insert
// rule: if an existing record's content is a case-insensitive substring of
// the incoming content or vice versa, the existing record is accessed
// (strength bumped) and the insert is dropped.
type SemanticTier struct {
	*DurableTier
}

// NewSemanticTier builds the Semantic durable tier.
func NewSemanticTier(d *DurableTier) *SemanticTier { return &SemanticTier{DurableTier: d} }

// PutDeduped applies the dedup rule before delegating to Put. Returns
// (existingID, true) if an existing record absorbed the insert instead.
func (s *SemanticTier) PutDeduped(r *record.Record, nowMillis int64) (existingID string, deduped bool, err error) {
	all, err := s.All()
	if err != nil {
		return "", false, err
	}
	incoming := strings.ToLower(r.Content)
	for _, existing := range all {
		existingContent := strings.ToLower(existing.Content)
		if strings.Contains(existingContent, incoming) || strings.Contains(incoming, existingContent) {
			existing.Access(nowMillis)
			if err := s.Put(existing); err != nil {
				return "", false, err
			}
			return existing.ID, true, nil
		}
	}
	return "", false, s.Put(r)
}
