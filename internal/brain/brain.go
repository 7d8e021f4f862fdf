// Package brain implements the recall orchestrator: the single entry point
// that wires the vector kernel, embedder/cache, inverted index, bloom
// filter, HNSW graph, decay rules, and tiered store into the ingest/recall
// pipeline. Grounded on original_source/src/lib.rs's MemoryBrain (process/
// recall/semantic_search/sleep), constructed by dependency injection through
// struct fields set once at Open and never reassigned, with a tiktoken-go/
// log.Printf bracket-prefix ambient stack for token accounting and tracing.
package brain

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/coldforge/membrain/internal/bloomfilter"
	"github.com/coldforge/membrain/internal/brainerr"
	"github.com/coldforge/membrain/internal/cql"
	"github.com/coldforge/membrain/internal/embedder"
	"github.com/coldforge/membrain/internal/hnsw"
	"github.com/coldforge/membrain/internal/invindex"
	"github.com/coldforge/membrain/internal/record"
	"github.com/coldforge/membrain/internal/tierstore"
)

// Config holds the tunable construction parameters, matching the
// specification's configuration defaults.
type Config struct {
	CacheCapacity    int
	BloomExpected    uint
	BloomFPR         float64
	HNSWSeed         int64
	MaxContentTokens int

	// SnapshotPath, if non-empty, is a SQLite database used to persist the
	// embedding cache across restarts: loaded into the cache on Open, saved
	// back on Close.
	SnapshotPath string
}

// DefaultConfig returns the specification's documented defaults.
func DefaultConfig() Config {
	return Config{
		CacheCapacity:    10000,
		BloomExpected:    10000,
		BloomFPR:         0.01,
		HNSWSeed:         1,
		MaxContentTokens: 2000,
	}
}

// Brain is the recall orchestrator. It exclusively owns the tiered store,
// the adapter handle, the HNSW graph, the inverted index, and the bloom
// filter; the embedder is shared and wrapped in a cache.
type Brain struct {
	mu    sync.RWMutex
	state State

	adapter  *cql.Adapter
	store    *tierstore.Store
	embed    *embedder.Cache
	invIndex *invindex.Index
	bloom    *bloomfilter.Filter
	ann      *hnsw.Index
	snapshot *embedder.Snapshot

	cfg Config
}

var (
	tiktokenEnc  *tiktoken.Tiktoken
	tiktokenErr  error
	tiktokenOnce sync.Once
)

func tokenCounter() *tiktoken.Tiktoken {
	tiktokenOnce.Do(func() {
		tiktokenEnc, tiktokenErr = tiktoken.GetEncoding("cl100k_base")
		if tiktokenErr != nil {
			log.Printf("[WARN] brain: tiktoken encoder unavailable, falling back to whitespace count: %v", tiktokenErr)
		} else {
			log.Printf("[OK] brain: tiktoken encoder loaded (cl100k_base)")
		}
	})
	return tiktokenEnc
}

// Open opens a Brain backed by the badger database at dbPath, using emb as
// the embedding function, with default configuration.
func Open(dbPath string, emb embedder.Embedder) (*Brain, error) {
	return OpenWithConfig(dbPath, emb, DefaultConfig())
}

// OpenWithConfig opens a Brain with explicit configuration.
func OpenWithConfig(dbPath string, emb embedder.Embedder, cfg Config) (*Brain, error) {
	adapter, err := cql.Open(cql.Options{Dir: dbPath})
	if err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "open adapter", err)
	}
	b, err := OpenWithAdapter(adapter, emb, cfg)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	log.Printf("[OK] brain: opened at %s (dimension=%d)", dbPath, emb.Dimension())
	return b, nil
}

// OpenWithAdapter opens a Brain over an already-open adapter (an in-memory
// adapter in tests, or a pre-configured one from pkg/config in production).
func OpenWithAdapter(adapter *cql.Adapter, emb embedder.Embedder, cfg Config) (*Brain, error) {
	if _, err := adapter.Execute("CREATE KEYSPACE " + tierstore.Keyspace + " WITH REPLICATION = {'class': 'SimpleStrategy'}"); err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "create keyspace", err)
	}
	store, err := tierstore.Open(adapter)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "open tier store", err)
	}

	b := &Brain{
		state:   Uninitialised,
		adapter: adapter,
		store:   store,
		embed:   embedder.NewCache(emb, cfg.CacheCapacity),
		cfg:     cfg,
	}

	if cfg.SnapshotPath != "" {
		snap, err := embedder.OpenSnapshot(cfg.SnapshotPath)
		if err != nil {
			log.Printf("[WARN] brain: open cache snapshot: %v", err)
		} else {
			b.snapshot = snap
			if seed, err := snap.Load(); err != nil {
				log.Printf("[WARN] brain: load cache snapshot: %v", err)
			} else {
				b.embed.RestoreInto(seed)
				log.Printf("[OK] brain: restored %d cached embeddings from %s", len(seed), cfg.SnapshotPath)
			}
		}
	}

	if _, err := b.RebuildIndexes(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.state = Open
	b.mu.Unlock()
	return b, nil
}

// checkOpen returns ClosedBrain if the brain is not in the Open state.
func (b *Brain) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != Open {
		return brainerr.Wrap(brainerr.ClosedBrain, "brain is not open", nil)
	}
	return nil
}

// Close transitions the brain to Closed, flushing and closing the adapter.
// All further operations fail with ClosedBrain.
func (b *Brain) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Closed {
		return nil
	}
	b.state = Closed
	if b.snapshot != nil {
		if err := b.embed.SaveSnapshot(b.snapshot); err != nil {
			log.Printf("[WARN] brain: save cache snapshot: %v", err)
		}
		if err := b.snapshot.Close(); err != nil {
			log.Printf("[WARN] brain: close cache snapshot: %v", err)
		}
	}
	if err := b.adapter.Flush(); err != nil {
		log.Printf("[WARN] brain: flush on close: %v", err)
	}
	return b.adapter.Close()
}

// State reports the current lifecycle state.
func (b *Brain) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// RebuildStats summarises a RebuildIndexes pass.
type RebuildStats struct {
	Docs     int
	Keywords int
	AnnCount int
}

// RebuildIndexes discards the in-memory inverted index, bloom filter, and
// HNSW graph, and reconstructs them from a full scan of the three durable
// tiers.
func (b *Brain) RebuildIndexes() (RebuildStats, error) {
	episodic, err := b.store.Episodic.All()
	if err != nil {
		return RebuildStats{}, brainerr.Wrap(brainerr.StoreFailed, "scan episodic", err)
	}
	semantic, err := b.store.Semantic.All()
	if err != nil {
		return RebuildStats{}, brainerr.Wrap(brainerr.StoreFailed, "scan semantic", err)
	}
	procedural, err := b.store.Procedural.All()
	if err != nil {
		return RebuildStats{}, brainerr.Wrap(brainerr.StoreFailed, "scan procedural", err)
	}

	invIndex := invindex.New()
	bloom := bloomfilter.New(b.cfg.BloomExpected, b.cfg.BloomFPR)
	ann := hnsw.New(b.embed.Dimension(), b.cfg.HNSWSeed)

	all := make([]*record.Record, 0, len(episodic)+len(semantic)+len(procedural))
	all = append(all, episodic...)
	all = append(all, semantic...)
	all = append(all, procedural...)

	for _, r := range all {
		invIndex.Add(r.ID, r.Content)
		for _, tok := range rawTokens(r.Content) {
			bloom.Add(tok)
		}
		if len(r.Embedding) == b.embed.Dimension() {
			if err := ann.Add(r.ID, r.Embedding); err != nil {
				log.Printf("[WARN] brain: rebuild skipped ann insert for %s: %v", r.ID, err)
			}
		}
	}

	b.mu.Lock()
	b.invIndex = invIndex
	b.bloom = bloom
	b.ann = ann
	b.mu.Unlock()

	stats := RebuildStats{Docs: len(all), Keywords: invIndex.Stats().Keywords, AnnCount: ann.Count()}
	log.Printf("[OK] brain: rebuilt indexes (docs=%d keywords=%d ann=%d)", stats.Docs, stats.Keywords, stats.AnnCount)
	return stats, nil
}

// StorageExecute runs a raw CQL-subset query against the adapter,
// bypassing the orchestration layer. Used for inspection/maintenance.
func (b *Brain) StorageExecute(query string) (cql.Result, error) {
	if err := b.checkOpen(); err != nil {
		return cql.Result{}, err
	}
	res, err := b.adapter.Execute(query)
	if err != nil {
		return cql.Result{}, brainerr.Wrap(brainerr.StoreFailed, "storage_execute", err)
	}
	return res, nil
}

// Sleep runs the nightly maintenance tick over the tiered store, then
// evicts every forgotten record from the HNSW graph so no ghost nodes
// survive a forgetting pass.
func (b *Brain) Sleep(nowMillis int64) (tierstore.ConsolidationReport, error) {
	if err := b.checkOpen(); err != nil {
		return tierstore.ConsolidationReport{}, err
	}
	report, err := b.store.Sleep(nowMillis)
	if err != nil {
		return report, brainerr.Wrap(brainerr.StoreFailed, "sleep", err)
	}

	b.mu.Lock()
	for _, id := range report.ForgottenIDs {
		b.ann.Remove(id)
	}
	b.mu.Unlock()

	log.Printf("[OK] brain: sleep tick (moved=%d decayed=%d forgotten=%d)", report.Moved, report.Decayed, report.Forgotten)
	return report, nil
}
