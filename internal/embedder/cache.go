// Cache wraps an Embedder with an LRU cache keyed by a hash of the input
// text, grounded on memory/vector_store.go's getEmbedding caching shape but
// backed by github.com/hashicorp/golang-lru/v2 instead of a hand-rolled
// map+list, and by github.com/mattn/go-sqlite3 for the optional disk
// snapshot: a single text_hash->vector table that survives restarts.
package embedder

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/coldforge/membrain/internal/brainerr"
)

// Stats reports cache effectiveness.
type Stats struct {
	Hits         int64
	Misses       int64
	Size         int
	Capacity     int
	HitRate      float64
	MemoryBytes  int64
}

// Cache is an LRU embedding cache over an inner Embedder.
type Cache struct {
	mu       sync.Mutex
	inner    Embedder
	lru      *lru.Cache[uint64, []float32]
	capacity int
	hits     int64
	misses   int64
}

// NewCache wraps inner with an LRU of the given capacity.
func NewCache(inner Embedder, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 10000
	}
	l, _ := lru.New[uint64, []float32](capacity)
	return &Cache{inner: inner, lru: l, capacity: capacity}
}

func (c *Cache) Dimension() int { return c.inner.Dimension() }

func hashKey(text string) uint64 {
	f := fnv.New64a()
	f.Write([]byte(text))
	return f.Sum64()
}

// Embed returns the cached vector for text, computing and storing it on a
// miss.
func (c *Cache) Embed(text string) []float32 {
	key := hashKey(text)
	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return v
	}
	c.misses++
	c.mu.Unlock()

	v := c.inner.Embed(text)
	c.mu.Lock()
	c.lru.Add(key, v)
	c.maybeResizeLocked()
	c.mu.Unlock()
	return v
}

// EmbedBatch dedupes requests and fills misses in a single pass, preserving
// input order in the output.
func (c *Cache) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	type miss struct {
		idx  int
		key  uint64
		text string
	}
	var misses []miss
	seen := make(map[uint64]int) // key -> first output index with this key

	c.mu.Lock()
	for i, t := range texts {
		key := hashKey(t)
		if v, ok := c.lru.Get(key); ok {
			out[i] = v
			c.hits++
			continue
		}
		if _, dup := seen[key]; dup {
			continue // filled by the miss-resolution pass below
		}
		seen[key] = i
		misses = append(misses, miss{idx: i, key: key, text: t})
		c.misses++
	}
	c.mu.Unlock()

	for _, m := range misses {
		v := c.inner.Embed(m.text)
		out[m.idx] = v
		for i, t := range texts {
			if i != m.idx && hashKey(t) == m.key {
				out[i] = v
			}
		}
		c.mu.Lock()
		c.lru.Add(m.key, v)
		c.mu.Unlock()
	}
	c.mu.Lock()
	c.maybeResizeLocked()
	c.mu.Unlock()
	return out
}

// maybeResizeLocked applies the adaptive resize rule: grow x1.5 if hit_rate
// > 0.8 and capacity < 1e5; shrink x0.75 if hit_rate < 0.2 and capacity >
// 1e3; otherwise no-op. Caller must hold c.mu.
func (c *Cache) maybeResizeLocked() {
	total := c.hits + c.misses
	if total < 100 { // avoid thrashing on a cold cache
		return
	}
	rate := float64(c.hits) / float64(total)
	switch {
	case rate > 0.8 && c.capacity < 100000:
		c.resizeLocked(int(float64(c.capacity) * 1.5))
	case rate < 0.2 && c.capacity > 1000:
		c.resizeLocked(int(float64(c.capacity) * 0.75))
	}
}

func (c *Cache) resizeLocked(newCap int) {
	if newCap < 1 {
		newCap = 1
	}
	fresh, _ := lru.New[uint64, []float32](newCap)
	for _, key := range c.lru.Keys() {
		if v, ok := c.lru.Peek(key); ok {
			fresh.Add(key, v)
		}
	}
	c.lru = fresh
	c.capacity = newCap
}

// Stats reports current cache effectiveness.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	size := c.lru.Len()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Size:        size,
		Capacity:    c.capacity,
		HitRate:     rate,
		MemoryBytes: int64(size) * int64(c.Dimension()) * 4,
	}
}

// Snapshot is the optional on-disk persistence for the cache, backed by
// SQLite: a single (text_hash TEXT PRIMARY KEY, vector BLOB) table.
type Snapshot struct {
	db *sql.DB
}

// OpenSnapshot opens (creating if needed) the cache snapshot database at path.
func OpenSnapshot(path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.CacheLoadFailed, "open snapshot db", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS embedding_cache (
		text_hash TEXT PRIMARY KEY,
		vector BLOB NOT NULL
	)`)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.CacheLoadFailed, "create snapshot schema", err)
	}
	return &Snapshot{db: db}, nil
}

func serializeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeVector(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// Load reads the full snapshot into an in-memory map keyed by text hash
// (parsed from the hex string stored in the table), to seed a fresh Cache. Returns CacheLoadFailed (not
// fatal) on any read error; callers should start with an empty cache.
func (s *Snapshot) Load() (map[uint64][]float32, error) {
	rows, err := s.db.Query(`SELECT text_hash, vector FROM embedding_cache`)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.CacheLoadFailed, "query snapshot", err)
	}
	defer rows.Close()

	out := make(map[uint64][]float32)
	for rows.Next() {
		var hashStr string
		var blob []byte
		if err := rows.Scan(&hashStr, &blob); err != nil {
			return nil, brainerr.Wrap(brainerr.CacheLoadFailed, "scan snapshot row", err)
		}
		var key uint64
		if _, err := fmt.Sscanf(hashStr, "%x", &key); err != nil {
			continue
		}
		out[key] = deserializeVector(blob)
	}
	return out, nil
}

// Save persists a single key/vector pair.
func (s *Snapshot) Save(key uint64, vector []float32) error {
	_, err := s.db.Exec(
		`INSERT INTO embedding_cache (text_hash, vector) VALUES (?, ?)
		 ON CONFLICT(text_hash) DO UPDATE SET vector = excluded.vector`,
		fmt.Sprintf("%x", key), serializeVector(vector),
	)
	return err
}

// Close closes the underlying database handle.
func (s *Snapshot) Close() error { return s.db.Close() }

// RestoreInto seeds cache's LRU from a loaded snapshot map.
func (c *Cache) RestoreInto(snapshot map[uint64][]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		c.lru.Add(k, v)
	}
}

// SaveSnapshot persists every entry currently held in the cache to s.
func (c *Cache) SaveSnapshot(s *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		v, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if err := s.Save(key, v); err != nil {
			return err
		}
	}
	return nil
}
