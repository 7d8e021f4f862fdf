// Package hnsw implements a hierarchical navigable small-world approximate
// nearest-neighbour graph over cosine distance. There is no Go HNSW library
// anywhere in the retrieved example pack, so this is hand-rolled, grounded
// on original_source/src/hnsw_index.rs's structure (level-assignment via a
// seeded PRNG, an id<->slot mapping, soft delete by mapping removal) and on
// memory/vector_store.go's operational shape (batched reload of persisted
// vectors via AddBatch). Tombstoned slots are counted by DeletedFraction but
// never compacted automatically; they remain in the graph until Clear.
package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/coldforge/membrain/internal/vecmath"
)

// Default construction parameters of the graph.
const (
	DefaultM             = 24
	DefaultMmax0         = 48
	DefaultEfConstruction = 24
	levelMultiplier      = 1.0 / 0.693147 // 1/ln(2), standard HNSW level scaling
)

// distanceScale converts a cosine similarity to the spec's unsigned 32-bit
// distance: u = ((1 - cos) / 2) * U32_MAX. Distance is 0 for identical
// vectors and never negative.
func distanceScale(cos float32) uint32 {
	d := (1 - cos) / 2
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	return uint32(float64(d) * math.MaxUint32)
}

type node struct {
	id        string
	vector    []float32
	level     int
	neighbors [][]int // neighbors[level] = slot indices
	deleted   bool
}

// Index is a cosine-distance HNSW graph. Safe for a single writer and
// multiple concurrent readers.
type Index struct {
	mu            sync.RWMutex
	dimension     int
	m             int
	mMax0         int
	efConstruction int
	rng           *rand.Rand

	nodes     []*node
	idToSlot  map[string]int
	entryPoint int
	maxLevel   int
}

// New creates an empty index for vectors of the given dimension, with a
// seeded PRNG for reproducible level assignment.
func New(dimension int, seed int64) *Index {
	return &Index{
		dimension:      dimension,
		m:              DefaultM,
		mMax0:          DefaultMmax0,
		efConstruction: DefaultEfConstruction,
		rng:            rand.New(rand.NewSource(seed)),
		idToSlot:       make(map[string]int),
		entryPoint:     -1,
		maxLevel:       -1,
	}
}

func (ix *Index) randomLevel() int {
	level := 0
	for ix.rng.Float64() < 1.0/math.E && level < 32 {
		level++
	}
	return level
}

// Add inserts id/vector. Rejects dimension mismatch; no-op on a duplicate id.
func (ix *Index) Add(id string, vector []float32) error {
	if len(vector) != ix.dimension {
		return errDimMismatch
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.idToSlot[id]; exists {
		return nil
	}

	level := ix.randomLevel()
	n := &node{
		id:        id,
		vector:    vector,
		level:     level,
		neighbors: make([][]int, level+1),
	}
	slot := len(ix.nodes)
	ix.nodes = append(ix.nodes, n)
	ix.idToSlot[id] = slot

	if ix.entryPoint == -1 {
		ix.entryPoint = slot
		ix.maxLevel = level
		return nil
	}

	ix.insertLinks(slot, level)

	if level > ix.maxLevel {
		ix.maxLevel = level
		ix.entryPoint = slot
	}
	return nil
}

func (ix *Index) insertLinks(slot, level int) {
	target := ix.nodes[slot]
	cur := ix.entryPoint

	for lvl := ix.maxLevel; lvl > level; lvl-- {
		cur = ix.greedyDescend(cur, target.vector, lvl)
	}

	for lvl := min(level, ix.maxLevel); lvl >= 0; lvl-- {
		candidates := ix.searchLayer(target.vector, cur, ix.efConstruction, lvl)
		maxConns := ix.m
		if lvl == 0 {
			maxConns = ix.mMax0
		}
		selected := selectNeighbors(candidates, maxConns)
		target.neighbors[lvl] = selected
		for _, nb := range selected {
			ix.nodes[nb].connect(lvl, slot, maxConns, ix.distanceTo(nb))
		}
		if len(candidates) > 0 {
			cur = candidates[0].slot
		}
	}
}

func (n *node) connect(level, slot, maxConns int, distFn func(int) uint32) {
	if level >= len(n.neighbors) {
		grown := make([][]int, level+1)
		copy(grown, n.neighbors)
		n.neighbors = grown
	}
	n.neighbors[level] = append(n.neighbors[level], slot)
	if len(n.neighbors[level]) > maxConns {
		sort.Slice(n.neighbors[level], func(i, j int) bool {
			return distFn(n.neighbors[level][i]) < distFn(n.neighbors[level][j])
		})
		n.neighbors[level] = n.neighbors[level][:maxConns]
	}
}

func (ix *Index) distanceTo(from int) func(int) uint32 {
	v := ix.nodes[from].vector
	return func(to int) uint32 {
		return distanceScale(vecmath.Cosine(v, ix.nodes[to].vector))
	}
}

type candidate struct {
	slot int
	dist uint32
}

func (ix *Index) greedyDescend(from int, query []float32, level int) int {
	improved := true
	cur := from
	for improved {
		improved = false
		curDist := distanceScale(vecmath.Cosine(query, ix.nodes[cur].vector))
		if level < len(ix.nodes[cur].neighbors) {
			for _, nb := range ix.nodes[cur].neighbors[level] {
				if ix.nodes[nb].deleted {
					continue
				}
				d := distanceScale(vecmath.Cosine(query, ix.nodes[nb].vector))
				if d < curDist {
					cur = nb
					curDist = d
					improved = true
				}
			}
		}
	}
	return cur
}

// searchLayer performs a greedy best-first search at a single level, returning
// up to ef candidates sorted by ascending distance (insertion-order tie-break).
func (ix *Index) searchLayer(query []float32, entry int, ef int, level int) []candidate {
	visited := map[int]struct{}{entry: {}}
	entryDist := distanceScale(vecmath.Cosine(query, ix.nodes[entry].vector))
	candidates := []candidate{{entry, entryDist}}
	result := []candidate{{entry, entryDist}}

	for len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
		c := candidates[0]
		candidates = candidates[1:]

		sort.SliceStable(result, func(i, j int) bool { return result[i].dist < result[j].dist })
		if len(result) >= ef && c.dist > result[len(result)-1].dist {
			break
		}

		if level >= len(ix.nodes[c.slot].neighbors) {
			continue
		}
		for _, nb := range ix.nodes[c.slot].neighbors[level] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			if ix.nodes[nb].deleted {
				continue
			}
			d := distanceScale(vecmath.Cosine(query, ix.nodes[nb].vector))
			candidates = append(candidates, candidate{nb, d})
			result = append(result, candidate{nb, d})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].dist != result[j].dist {
			return result[i].dist < result[j].dist
		}
		return result[i].slot < result[j].slot // slots are assigned in insertion order
	})
	if len(result) > ef {
		result = result[:ef]
	}
	return result
}

func selectNeighbors(candidates []candidate, max int) []int {
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.slot
	}
	return out
}

// AddBatch inserts multiple items, returning the count actually inserted
// (duplicates and dimension mismatches are skipped, not errors).
func (ix *Index) AddBatch(ids []string, vectors [][]float32) int {
	inserted := 0
	for i, id := range ids {
		before := ix.Count()
		if err := ix.Add(id, vectors[i]); err == nil && ix.Count() > before {
			inserted++
		}
	}
	return inserted
}

// Result pairs an id with its cosine similarity to the query.
type Result struct {
	ID         string
	Similarity float32
}

// Search returns up to k nearest neighbours of query by cosine similarity,
// descending, with ef_search defaulting to max(k, 16).
func (ix *Index) Search(query []float32, k int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.entryPoint == -1 || len(query) != ix.dimension {
		return nil
	}
	ef := k
	if ef < 16 {
		ef = 16
	}

	cur := ix.entryPoint
	for lvl := ix.maxLevel; lvl > 0; lvl-- {
		cur = ix.greedyDescend(cur, query, lvl)
	}
	candidates := ix.searchLayer(query, cur, ef, 0)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if ix.nodes[c.slot].deleted {
			continue
		}
		sim := 1 - float32(c.dist)/float32(math.MaxUint32)*2
		results = append(results, Result{ID: ix.nodes[c.slot].id, Similarity: sim})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Remove soft-deletes id: removes it from the id map only, retaining its
// graph slot until Clear. Returns true if id was present.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	slot, ok := ix.idToSlot[id]
	if !ok {
		return false
	}
	ix.nodes[slot].deleted = true
	delete(ix.idToSlot, id)
	return true
}

// DeletedFraction reports the fraction of inserted slots that are tombstoned.
// The index never rebuilds itself; tombstoned slots stay until Clear.
func (ix *Index) DeletedFraction() float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.nodes) == 0 {
		return 0
	}
	deleted := 0
	for _, n := range ix.nodes {
		if n.deleted {
			deleted++
		}
	}
	return float64(deleted) / float64(len(ix.nodes))
}

// Stats summarises the index.
type Stats struct {
	Count     int
	Dimension int
}

// Stats reports live count (excluding soft-deleted) and dimension.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{Count: len(ix.idToSlot), Dimension: ix.dimension}
}

// Count returns the number of live (non-deleted) entries.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.idToSlot)
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.nodes = nil
	ix.idToSlot = make(map[string]int)
	ix.entryPoint = -1
	ix.maxLevel = -1
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var errDimMismatch = &dimError{}

type dimError struct{}

func (*dimError) Error() string { return "hnsw: vector dimension mismatch" }
