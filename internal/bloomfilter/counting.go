package bloomfilter

import "sync"

// CountingFilter replaces the bit array with saturating 8-bit counters so
// items can be removed. No pack dependency offers a counting Bloom filter,
// so the counters are a plain byte slice rather than a third-party type.
type CountingFilter struct {
	mu       sync.RWMutex
	counters []uint8
	m        uint
	k        uint
	n        uint
}

// NewCounting derives m and k exactly as New does.
func NewCounting(expectedItems uint, falsePositiveRate float64) *CountingFilter {
	base := New(expectedItems, falsePositiveRate)
	return &CountingFilter{
		counters: make([]uint8, base.m),
		m:        base.m,
		k:        base.k,
	}
}

func (f *CountingFilter) positions(item string) []uint {
	h1, h2 := hashes(item)
	pos := make([]uint, f.k)
	for i := uint(0); i < f.k; i++ {
		pos[i] = uint((h1 + uint64(i)*h2) % uint64(f.m))
	}
	return pos
}

// Add inserts item, incrementing each of its k counters with saturation.
func (f *CountingFilter) Add(item string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.positions(item) {
		if f.counters[p] < 255 {
			f.counters[p]++
		}
	}
	f.n++
}

// Remove decrements each of item's k counters with saturating subtraction.
func (f *CountingFilter) Remove(item string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.positions(item) {
		if f.counters[p] > 0 {
			f.counters[p]--
		}
	}
	if f.n > 0 {
		f.n--
	}
}

// Contains reports whether all of item's k positions are nonzero.
func (f *CountingFilter) Contains(item string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.positions(item) {
		if f.counters[p] == 0 {
			return false
		}
	}
	return true
}

// Clear resets all counters to zero.
func (f *CountingFilter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.counters {
		f.counters[i] = 0
	}
	f.n = 0
}
