package tierstore

import (
	"strings"
	"sync"

	"github.com/coldforge/membrain/internal/record"
)

// WorkingCapacity is the bounded FIFO size of the Working tier (W = 7).
const WorkingCapacity = 7

// Working is the volatile, bounded FIFO working-memory tier.
type Working struct {
	mu    sync.RWMutex
	items []*record.Record
}

// NewWorking creates an empty Working tier.
func NewWorking() *Working { return &Working{} }

// Push appends r, evicting the oldest record if the tier is at capacity.
// Returns the evicted record, or nil if none was evicted.
func (w *Working) Push(r *record.Record) *record.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, r)
	if len(w.items) > WorkingCapacity {
		evicted := w.items[0]
		w.items = w.items[1:]
		return evicted
	}
	return nil
}

// Search returns records whose content contains query (case-insensitive substring).
func (w *Working) Search(query string) []*record.Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*record.Record
	for _, r := range w.items {
		if r.MatchesSubstring(query) {
			out = append(out, r)
		}
	}
	return out
}

// GetImportant returns records with Strength >= threshold.
func (w *Working) GetImportant(threshold float64) []*record.Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*record.Record
	for _, r := range w.items {
		if r.Strength >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Rehearse bumps access on items whose content contains text.
func (w *Working) Rehearse(text string, nowMillis int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	lower := strings.ToLower(text)
	for _, r := range w.items {
		if strings.Contains(strings.ToLower(r.Content), lower) {
			r.Access(nowMillis)
		}
	}
}

// All returns a snapshot of every item currently in Working.
func (w *Working) All() []*record.Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*record.Record, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the current item count.
func (w *Working) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// Clear empties the tier.
func (w *Working) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
}

// RemoveByID removes the record with the given id, if present.
func (w *Working) RemoveByID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.items {
		if r.ID == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}
