package brain

import (
	"log"
	"sort"
	"time"

	"github.com/coldforge/membrain/internal/brainerr"
	"github.com/coldforge/membrain/internal/record"
	"github.com/coldforge/membrain/internal/tierstore"
	"github.com/coldforge/membrain/internal/vecmath"
)

func countTokens(text string) int {
	enc := tokenCounter()
	if enc == nil {
		return len(rawTokens(text))
	}
	return len(enc.Encode(text, nil, nil))
}

// Process ingests text (with optional context) through the full pipeline:
// embed, classify, working-push, index, auto-link, persist, ann-insert.
// Returns the new record's id.
func (b *Brain) Process(text, context string) (string, error) {
	if err := b.checkOpen(); err != nil {
		return "", err
	}
	if text == "" {
		return "", brainerr.Wrap(brainerr.InvalidInput, "content must not be empty", nil)
	}
	if n := countTokens(text); n > b.cfg.MaxContentTokens {
		return "", brainerr.Wrap(brainerr.InvalidInput, "content exceeds max_content_tokens", nil)
	}

	vec := b.embed.Embed(text)
	now := time.Now().UnixMilli()

	tier := tierstore.Classify(text, context)
	rec := record.New(text, context, tier, record.EmotionNeutral, now)
	if err := rec.SetEmbedding(vec, b.embed.Dimension()); err != nil {
		return "", brainerr.Wrap(brainerr.InvalidInput, "embedding dimension mismatch", err)
	}

	b.store.Working.Push(rec)

	b.mu.Lock()
	b.invIndex.Add(rec.ID, rec.Content)
	for _, tok := range rawTokens(rec.Content) {
		b.bloom.Add(tok)
	}
	b.mu.Unlock()

	for _, rel := range b.findRelated(vec, 0.4, 5) {
		rec.Associate(rel.ID)
	}

	if err := b.store.PutLongTerm(rec, now); err != nil {
		return "", brainerr.Wrap(brainerr.StoreFailed, "persist ingested record", err)
	}

	b.mu.Lock()
	annErr := b.ann.Add(rec.ID, vec)
	b.mu.Unlock()
	if annErr != nil {
		log.Printf("[WARN] brain: ann insert failed for %s, recall still works via keyword index: %v", rec.ID, annErr)
	}

	log.Printf("[OK] brain: ingested %s into %s tier (associations=%d)", rec.ID, rec.Tier, len(rec.Associations))
	return rec.ID, nil
}

type relatedMatch struct {
	ID         string
	Similarity float32
}

// findRelated scans the Semantic and Episodic tiers for records whose
// embedding exceeds threshold cosine similarity to vec, matching
// original_source/src/lib.rs's find_related_memories.
func (b *Brain) findRelated(vec []float32, threshold float32, limit int) []relatedMatch {
	var out []relatedMatch
	seen := make(map[string]struct{})

	scan := func(records []*record.Record) {
		for _, r := range records {
			if len(r.Embedding) == 0 {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			sim := vecmath.Cosine(vec, r.Embedding)
			if sim > threshold {
				out = append(out, relatedMatch{ID: r.ID, Similarity: sim})
				seen[r.ID] = struct{}{}
			}
		}
	}

	if semantic, err := b.store.Semantic.All(); err == nil {
		scan(semantic)
	}
	if episodic, err := b.store.Episodic.All(); err == nil {
		scan(episodic)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
