package brain

import (
	"github.com/coldforge/membrain/internal/brainerr"
	"github.com/coldforge/membrain/internal/record"
)

// UpdateStrength locates the record whose id starts with idPrefix across
// all durable tiers, clamps newStrength to [0, 1], and persists it.
func (b *Brain) UpdateStrength(idPrefix string, newStrength float64) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if idPrefix == "" {
		return brainerr.Wrap(brainerr.InvalidInput, "id prefix must not be empty", nil)
	}

	type tier interface {
		GetByIDPrefix(prefix string) (*record.Record, error)
		Put(r *record.Record) error
	}
	tiers := []tier{b.store.Episodic, b.store.Semantic, b.store.Procedural}

	for _, t := range tiers {
		r, err := t.GetByIDPrefix(idPrefix)
		if err != nil {
			return brainerr.Wrap(brainerr.StoreFailed, "lookup by id prefix", err)
		}
		if r == nil {
			continue
		}
		r.Strength = clampUnit(newStrength)
		if err := t.Put(r); err != nil {
			return brainerr.Wrap(brainerr.StoreFailed, "persist strength update", err)
		}
		return nil
	}
	return brainerr.Wrap(brainerr.NotFound, "no record matches id prefix "+idPrefix, nil)
}
