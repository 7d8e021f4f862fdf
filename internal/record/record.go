// Package record defines MemoryRecord, the typed, decaying, associable
// unit stored by every tier. Grounded on memory/vector_store.go's
// MemoryEntry shape, generalised to the tiered/emotion/association model
// the specification requires.
package record

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/coldforge/membrain/internal/vecmath"
)

// Tier names the four memory tiers.
type Tier string

const (
	TierWorking    Tier = "working"
	TierEpisodic   Tier = "episodic"
	TierSemantic   Tier = "semantic"
	TierProcedural Tier = "procedural"
)

// Emotion influences initial strength and decay.
type Emotion string

const (
	EmotionNeutral  Emotion = "neutral"
	EmotionPositive Emotion = "positive"
	EmotionNegative Emotion = "negative"
	EmotionSurprise Emotion = "surprise"
)

// Record is a MemoryRecord: a typed, decaying, associable item with a
// dense embedding.
type Record struct {
	ID            string
	Content       string
	Context       string
	Tier          Tier
	Emotion       Emotion
	CreatedAt     int64 // epoch millis
	LastAccessed  int64 // epoch millis
	AccessCount   int
	Strength      float64
	Embedding     []float32
	Associations  []string // deduplicated, no self-loops, insertion order
	Tags          []string // ordered, deduplicated
}

// New builds a record with fresh id and timestamps, applying the initial
// strength rule: Working records start at 1.0; a non-Neutral emotion
// multiplies initial strength by 1.5 clamped to 1.0.
func New(content, context string, tier Tier, emotion Emotion, nowMillis int64) *Record {
	strength := 1.0
	if emotion != EmotionNeutral {
		strength = clamp(strength*1.5, 0, 1)
	}
	return &Record{
		ID:           uuid.NewString(),
		Content:      content,
		Context:      context,
		Tier:         tier,
		Emotion:      emotion,
		CreatedAt:    nowMillis,
		LastAccessed: nowMillis,
		AccessCount:  0,
		Strength:     strength,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Access updates LastAccessed/AccessCount and bumps Strength by +0.1
// clamped to 1.
func (r *Record) Access(nowMillis int64) {
	r.LastAccessed = nowMillis
	r.AccessCount++
	r.Strength = clamp(r.Strength+0.1, 0, 1)
}

// Decay multiplies Strength by factor, which must be in [0, 1].
func (r *Record) Decay(factor float64) {
	r.Strength = clamp(r.Strength*factor, 0, 1)
}

// Associate idempotently adds otherID, refusing self-loops.
func (r *Record) Associate(otherID string) {
	if otherID == r.ID {
		return
	}
	for _, a := range r.Associations {
		if a == otherID {
			return
		}
	}
	r.Associations = append(r.Associations, otherID)
}

// AddTag appends tag if not already present.
func (r *Record) AddTag(tag string) {
	for _, t := range r.Tags {
		if t == tag {
			return
		}
	}
	r.Tags = append(r.Tags, tag)
}

// IsForgotten reports whether Strength has dropped below the forgetting
// threshold of 0.1.
func (r *Record) IsForgotten() bool {
	return r.Strength < 0.1
}

// SetEmbedding L2-normalises and stores vec, validating dimension against
// want (pass 0 to skip the check).
func (r *Record) SetEmbedding(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("record: embedding dimension %d != expected %d", len(vec), want)
	}
	r.Embedding = vecmath.Normalize(vec)
	return nil
}

// MatchesSubstring reports whether query is a case-insensitive substring of
// the record's content.
func (r *Record) MatchesSubstring(query string) bool {
	return strings.Contains(strings.ToLower(r.Content), strings.ToLower(query))
}
