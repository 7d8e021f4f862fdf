// Store aggregates the four tiers and implements the sleep-tick
// consolidation/decay/forgetting maintenance pass. The ConsolidationReport
// return value supplements the distilled specification's bare "sleep tick"
// with the original's hippocampus-style maintenance counters (see
// original_source/src/hippocampus.rs, src/consolidate.rs).
package tierstore

import (
	"github.com/coldforge/membrain/internal/cql"
	"github.com/coldforge/membrain/internal/decay"
	"github.com/coldforge/membrain/internal/record"
)

// Store owns the Working tier and the three durable long-term tiers.
type Store struct {
	Working    *Working
	Episodic   *DurableTier
	Semantic   *SemanticTier
	Procedural *DurableTier
}

// Open constructs every tier's table over adapter.
func Open(adapter *cql.Adapter) (*Store, error) {
	episodic, err := NewDurableTier(adapter, record.TierEpisodic)
	if err != nil {
		return nil, err
	}
	semanticDurable, err := NewDurableTier(adapter, record.TierSemantic)
	if err != nil {
		return nil, err
	}
	procedural, err := NewDurableTier(adapter, record.TierProcedural)
	if err != nil {
		return nil, err
	}
	return &Store{
		Working:    NewWorking(),
		Episodic:   episodic,
		Semantic:   NewSemanticTier(semanticDurable),
		Procedural: procedural,
	}, nil
}

// durableFor returns the durable tier handle for a non-Working tier kind.
func (s *Store) durableFor(tier record.Tier) *DurableTier {
	switch tier {
	case record.TierSemantic:
		return s.Semantic.DurableTier
	case record.TierProcedural:
		return s.Procedural
	default:
		return s.Episodic
	}
}

// PutLongTerm persists r into its classified long-term tier, applying the
// Semantic dedup rule when applicable.
func (s *Store) PutLongTerm(r *record.Record, nowMillis int64) error {
	if r.Tier == record.TierSemantic {
		_, _, err := s.Semantic.PutDeduped(r, nowMillis)
		return err
	}
	return s.durableFor(r.Tier).Put(r)
}

// ConsolidationReport summarises a sleep tick's maintenance work.
// ForgottenIDs lists the ids of records deleted by the forgetting rule, so
// callers that maintain a side index over record ids (e.g. an HNSW graph)
// can evict the matching entries.
type ConsolidationReport struct {
	Moved        int
	Decayed      int
	Forgotten    int
	ForgottenIDs []string
}

// Sleep performs the nightly maintenance tick: (a) move consolidation-
// worthy records from Working to their long-term tier, (b) apply decay
// tier-wide, (c) delete forgotten records (except emotional ones with
// strength >= 0.3), (d) clear Working.
func (s *Store) Sleep(nowMillis int64) (ConsolidationReport, error) {
	var report ConsolidationReport

	for _, r := range s.Working.All() {
		if ConsolidationWorthy(r) {
			if err := s.PutLongTerm(r, nowMillis); err != nil {
				return report, err
			}
			report.Moved++
		}
	}

	for _, tier := range []*DurableTier{s.Episodic, s.Semantic.DurableTier, s.Procedural} {
		d, forgottenIDs, err := s.decayAndForgetTier(tier, nowMillis)
		if err != nil {
			return report, err
		}
		report.Decayed += d
		report.Forgotten += len(forgottenIDs)
		report.ForgottenIDs = append(report.ForgottenIDs, forgottenIDs...)
	}

	s.Working.Clear()
	return report, nil
}

func (s *Store) decayAndForgetTier(tier *DurableTier, nowMillis int64) (decayed int, forgottenIDs []string, err error) {
	all, err := tier.All()
	if err != nil {
		return 0, nil, err
	}
	for _, r := range all {
		ageDays := float64(nowMillis-r.CreatedAt) / millisPerDay
		sinceAccess := float64(nowMillis-r.LastAccessed) / millisPerDay
		params := decay.Params{
			AccessCount:     r.AccessCount,
			Strength:        r.Strength,
			AgeDays:         ageDays,
			SinceAccessDays: sinceAccess,
		}
		var mult float64
		if tier.tier == record.TierSemantic {
			mult = decay.SemanticMultiplier(params)
		} else {
			mult = decay.Multiplier(params)
		}
		preDecayStrength := r.Strength
		r.Decay(mult)
		decayed++

		if r.IsForgotten() {
			if r.Emotion != record.EmotionNeutral && preDecayStrength >= 0.3 {
				if err := tier.Put(r); err != nil {
					return decayed, forgottenIDs, err
				}
				continue
			}
			if err := tier.Delete(r.ID); err != nil {
				return decayed, forgottenIDs, err
			}
			forgottenIDs = append(forgottenIDs, r.ID)
			continue
		}
		if err := tier.Put(r); err != nil {
			return decayed, forgottenIDs, err
		}
	}
	return decayed, forgottenIDs, nil
}

const millisPerDay = 24 * 60 * 60 * 1000
