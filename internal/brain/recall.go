package brain

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/coldforge/membrain/internal/brainerr"
	"github.com/coldforge/membrain/internal/decay"
	"github.com/coldforge/membrain/internal/invindex"
	"github.com/coldforge/membrain/internal/record"
	"github.com/coldforge/membrain/internal/vecmath"
)

// Recall gathers candidates from working memory, the keyword index, a
// bloom-screened substring fallback, and a full semantic substring scan;
// rescoes, decays, ranks by relevance, deduplicates by content, and
// truncates to limit. It is cancellable cooperatively at each of these
// stages: if ctx is done before a stage starts, Recall returns Cancelled
// immediately, with no side effects (the candidate set built so far is
// discarded, not returned partially).
func (b *Brain) Recall(ctx context.Context, query string, limit int) ([]*record.Record, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	now := time.Now().UnixMilli()
	queryVec := b.embed.Embed(query)

	candidates := make(map[string]*record.Record)

	if err := ctx.Err(); err != nil {
		return nil, brainerr.Wrap(brainerr.Cancelled, "recall cancelled before working scan", err)
	}
	for _, r := range b.store.Working.Search(query) {
		candidates[r.ID] = r
	}

	if err := ctx.Err(); err != nil {
		return nil, brainerr.Wrap(brainerr.Cancelled, "recall cancelled before keyword scan", err)
	}
	b.mu.RLock()
	ranked := b.invIndex.SearchRanked(query, 2*limit)
	b.mu.RUnlock()
	for _, s := range ranked {
		if _, ok := candidates[s.ID]; ok {
			continue
		}
		if r, ok := b.lookupByID(s.ID); ok {
			candidates[r.ID] = r
		}
	}

	bloomScreened := false
	if len(candidates) < limit {
		if err := ctx.Err(); err != nil {
			return nil, brainerr.Wrap(brainerr.Cancelled, "recall cancelled before bloom fallback", err)
		}
		tokens := invindex.Tokenize(query)
		var live []string
		for _, t := range tokens {
			if isStopWord(t) {
				continue
			}
			b.mu.RLock()
			inBloom := b.bloom.Contains(t)
			b.mu.RUnlock()
			if inBloom {
				live = append(live, t)
			}
		}
		if len(tokens) > 0 && len(live) == 0 {
			bloomScreened = true
		}
		for _, tok := range live {
			for _, tier := range []substringSearcher{b.store.Episodic, b.store.Semantic, b.store.Procedural} {
				matches, err := tier.SearchSubstring(tok)
				if err != nil {
					continue
				}
				for _, r := range matches {
					candidates[r.ID] = r
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, brainerr.Wrap(brainerr.Cancelled, "recall cancelled before semantic scan", err)
	}
	if matches, err := b.store.Semantic.SearchSubstring(query); err == nil {
		for _, r := range matches {
			candidates[r.ID] = r
		}
	}

	results := make([]*record.Record, 0, len(candidates))
	for _, r := range candidates {
		results = append(results, r)
	}

	for _, r := range results {
		if len(r.Embedding) > 0 {
			sim := vecmath.Cosine(queryVec, r.Embedding)
			r.Strength = clampUnit(0.5*r.Strength + 0.5*float64(sim))
		}
		applyDecay(r, now)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return relevance(results[i], now) > relevance(results[j], now)
	})

	deduped := make([]*record.Record, 0, len(results))
	seenContent := make(map[string]struct{})
	for _, r := range results {
		if _, ok := seenContent[r.Content]; ok {
			continue
		}
		seenContent[r.Content] = struct{}{}
		deduped = append(deduped, r)
		if len(deduped) >= limit {
			break
		}
	}

	log.Printf("[OK] brain: recall(%q) candidates=%d bloom_screened=%v results=%d", query, len(candidates), bloomScreened, len(deduped))
	return deduped, nil
}

// SemanticResult pairs a record with its cosine similarity to the query.
type SemanticResult struct {
	Record     *record.Record
	Similarity float32
}

// SemanticSearch performs a full scan of the Semantic tier, scoring by
// cosine similarity to the query embedding, filtering sim > 0.05.
func (b *Brain) SemanticSearch(query string, limit int) ([]SemanticResult, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	queryVec := b.embed.Embed(query)

	all, err := b.store.Semantic.All()
	if err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "semantic_search scan", err)
	}

	out := make([]SemanticResult, 0, len(all))
	for _, r := range all {
		if len(r.Embedding) == 0 {
			continue
		}
		sim := vecmath.Cosine(queryVec, r.Embedding)
		if sim > 0.05 {
			out = append(out, SemanticResult{Record: r, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type substringSearcher interface {
	SearchSubstring(query string) ([]*record.Record, error)
}

// lookupByID finds a persisted record by exact id across the three
// durable tiers.
func (b *Brain) lookupByID(id string) (*record.Record, bool) {
	for _, tier := range []interface {
		Get(id string) (*record.Record, bool, error)
	}{b.store.Episodic, b.store.Semantic, b.store.Procedural} {
		if r, ok, err := tier.Get(id); err == nil && ok {
			return r, true
		}
	}
	return nil, false
}

func applyDecay(r *record.Record, nowMillis int64) {
	ageDays := float64(nowMillis-r.CreatedAt) / millisPerDay
	sinceAccess := float64(nowMillis-r.LastAccessed) / millisPerDay
	params := decay.Params{
		AccessCount:     r.AccessCount,
		Strength:        r.Strength,
		AgeDays:         ageDays,
		SinceAccessDays: sinceAccess,
	}
	var mult float64
	if r.Tier == record.TierSemantic {
		mult = decay.SemanticMultiplier(params)
	} else {
		mult = decay.Multiplier(params)
	}
	r.Decay(mult)
}

// relevance computes 0.5*strength + 0.3*recency_factor + 0.2*ln(access_count+e)/10.
func relevance(r *record.Record, nowMillis int64) float64 {
	hoursSince := float64(nowMillis-r.LastAccessed) / (1000 * 60 * 60)
	recency := math.Exp(-hoursSince / 168)
	freq := math.Log(float64(r.AccessCount)+math.E) / 10
	return 0.5*r.Strength + 0.3*recency + 0.2*freq
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const millisPerDay = 24 * 60 * 60 * 1000
