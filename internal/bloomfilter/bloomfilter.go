// Package bloomfilter implements a probabilistic set-membership filter and
// its counting variant, over a github.com/bits-and-blooms/bitset backing
// store. Sizing follows the standard m/k derivation from expected item
// count and target false-positive rate; membership hashes are synthesised
// by double hashing two independent FNV variants (FNV-1a and FNV-1, 64-bit)
// rather than recomputing
// k independent hash functions.
package bloomfilter

import (
	"hash/fnv"
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Filter is a fixed-size Bloom filter, safe for concurrent readers and a
// single writer (the caller is responsible for excluding concurrent Add
// with Contains/Merge/Clear, mirrored by the embedded mutex).
type Filter struct {
	mu   sync.RWMutex
	bits *bitset.BitSet
	m    uint
	k    uint
	n    uint // items added, for false-positive-rate estimation
}

// New derives m and k from expected item count n and false-positive rate p,
// per: m = ceil(-n*ln(p) / (ln2)^2) clamped >= 64; k = ceil((m/n)*ln2)
// clamped to [1, 16].
func New(expectedItems uint, falsePositiveRate float64) *Filter {
	n := float64(expectedItems)
	if n < 1 {
		n = 1
	}
	m := math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2))
	if m < 64 {
		m = 64
	}
	k := math.Ceil((m / n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return &Filter{
		bits: bitset.New(uint(m)),
		m:    uint(m),
		k:    uint(k),
	}
}

func hashes(item string) (h1, h2 uint64) {
	f1 := fnv.New64a()
	f1.Write([]byte(item))
	h1 = f1.Sum64()

	f2 := fnv.New64()
	f2.Write([]byte(item))
	h2 = f2.Sum64()
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func (f *Filter) positions(item string) []uint {
	h1, h2 := hashes(item)
	pos := make([]uint, f.k)
	for i := uint(0); i < f.k; i++ {
		pos[i] = uint((h1 + uint64(i)*h2) % uint64(f.m))
	}
	return pos
}

// Add inserts item into the filter.
func (f *Filter) Add(item string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.positions(item) {
		f.bits.Set(p)
	}
	f.n++
}

// Contains reports whether item may be in the set. False positives are
// possible; false negatives are not.
func (f *Filter) Contains(item string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.positions(item) {
		if !f.bits.Test(p) {
			return false
		}
	}
	return true
}

// FalsePositiveRate estimates the current false-positive probability as
// (1 - e^(-k*n/m))^k.
func (f *Filter) FalsePositiveRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.n == 0 {
		return 0
	}
	exp := -float64(f.k) * float64(f.n) / float64(f.m)
	return math.Pow(1-math.Exp(exp), float64(f.k))
}

// Merge ORs other's bits into f. Both filters must share m and k.
func (f *Filter) Merge(other *Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	if f.m != other.m || f.k != other.k {
		return errMismatch
	}
	f.bits.InPlaceUnion(other.bits)
	if other.n > f.n {
		f.n = other.n
	}
	return nil
}

// Clear resets the filter to empty.
func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits.ClearAll()
	f.n = 0
}

var errMismatch = &mismatchError{}

type mismatchError struct{}

func (*mismatchError) Error() string { return "bloomfilter: merge requires identical m and k" }
