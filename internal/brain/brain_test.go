package brain

import (
	"context"
	"testing"

	"github.com/coldforge/membrain/internal/brainerr"
	"github.com/coldforge/membrain/internal/cql"
	"github.com/coldforge/membrain/internal/embedder"
)

type countingEmbedder struct {
	calls int
	inner embedder.Embedder
}

func (c *countingEmbedder) Embed(text string) []float32 {
	c.calls++
	return c.inner.Embed(text)
}
func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func openTestBrain(t *testing.T) *Brain {
	t.Helper()
	adapter, err := cql.Open(cql.Options{InMemory: true})
	if err != nil {
		t.Fatalf("cql.Open: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BloomExpected = 100
	b, err := OpenWithAdapter(adapter, embedder.NewHashBag(32), cfg)
	if err != nil {
		t.Fatalf("OpenWithAdapter: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestProcessClassifiesAndRecallFindsIt(t *testing.T) {
	b := openTestBrain(t)
	if _, err := b.Process("Rust is a systems programming language", ""); err != nil {
		t.Fatalf("Process: %v", err)
	}

	results, err := b.Recall(context.Background(), "Rust", 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Recall should find the ingested record")
	}
	found := false
	for _, r := range results {
		if r.Content == "Rust is a systems programming language" {
			found = true
		}
	}
	if !found {
		t.Errorf("Recall results = %v, want the ingested Rust sentence", results)
	}
}

func TestSemanticSearchRanksRelatedAboveUnrelated(t *testing.T) {
	b := openTestBrain(t)
	b.Process("Rust is a systems programming language", "")
	b.Process("Python is great for data science", "")

	rustResults, err := b.SemanticSearch("Rust programming language", 5)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(rustResults) == 0 {
		t.Fatal("expected at least one semantic match for Rust query")
	}
	if got := rustResults[0].Record.Content; got != "Rust is a systems programming language" {
		t.Errorf("top semantic match = %q, want the Rust sentence ranked above the unrelated Python one", got)
	}
}

func TestWorkingEvictionAfterTenIngests(t *testing.T) {
	b := openTestBrain(t)
	sentences := []string{
		"first distinct sentence one",
		"second distinct sentence two",
		"third distinct sentence three",
		"fourth distinct sentence four",
		"fifth distinct sentence five",
		"sixth distinct sentence six",
		"seventh distinct sentence seven",
		"eighth distinct sentence eight",
		"ninth distinct sentence nine",
		"tenth distinct sentence ten",
	}
	for _, s := range sentences {
		if _, err := b.Process(s, ""); err != nil {
			t.Fatalf("Process(%q): %v", s, err)
		}
	}
	if b.store.Working.Len() > 7 {
		t.Errorf("Working.Len() = %d, want <= 7", b.store.Working.Len())
	}
	if matches := b.store.Working.Search("first distinct"); len(matches) != 0 {
		t.Errorf("first ingested sentence should have been evicted from Working, found %v", matches)
	}
}

func TestSleepConsolidatesAccessedItemIntoLongTermTier(t *testing.T) {
	b := openTestBrain(t)
	id, err := b.Process("an important fact worth remembering", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := b.UpdateStrength(id, 0.9); err != nil {
			t.Fatalf("UpdateStrength: %v", err)
		}
	}

	if _, err := b.Sleep(0); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if b.store.Working.Len() != 0 {
		t.Errorf("Working.Len() = %d after Sleep, want 0", b.store.Working.Len())
	}
	if rec, err := b.store.Episodic.GetByIDPrefix(id); err != nil || rec == nil {
		t.Errorf("record %s not in the episodic tier after Sleep (err=%v)", id, err)
	}
}

func TestSleepEvictsForgottenRecordsFromANN(t *testing.T) {
	b := openTestBrain(t)
	id, err := b.Process("a soon to be forgotten detail", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	beforeCount := b.ann.Count()

	rec, err := b.store.Episodic.GetByIDPrefix(id)
	if err != nil {
		t.Fatalf("GetByIDPrefix: %v", err)
	}
	if rec == nil {
		t.Fatal("expected the processed record in the episodic tier")
	}
	rec.Strength = 0.5
	rec.AccessCount = 1
	rec.CreatedAt = 0
	rec.LastAccessed = 0
	if err := b.store.Episodic.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	farFuture := int64(2000) * 24 * 60 * 60 * 1000
	report, err := b.Sleep(farFuture)
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if report.Forgotten == 0 {
		t.Fatal("expected the stale record to be forgotten")
	}

	if got := b.ann.Count(); got != beforeCount-1 {
		t.Errorf("ann.Count() = %d after forgetting, want %d", got, beforeCount-1)
	}
}

func TestSnapshotPathPersistsEmbeddingCacheAcrossReopen(t *testing.T) {
	dbPath := t.TempDir()
	snapPath := dbPath + "/cache.db"

	cfg := DefaultConfig()
	cfg.BloomExpected = 100
	cfg.SnapshotPath = snapPath

	first, err := OpenWithConfig(dbPath, embedder.NewHashBag(32), cfg)
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if _, err := first.Process("a fact worth caching", ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	counting := &countingEmbedder{inner: embedder.NewHashBag(32)}
	second, err := OpenWithConfig(dbPath, counting, cfg)
	if err != nil {
		t.Fatalf("OpenWithConfig (reopen): %v", err)
	}
	defer second.Close()

	second.embed.Embed("a fact worth caching")
	if counting.calls != 0 {
		t.Errorf("inner embedder called %d times after snapshot restore, want 0 (should be served from the restored cache)", counting.calls)
	}
}

func TestRecallReturnsCancelledOnCancelledContext(t *testing.T) {
	b := openTestBrain(t)
	b.Process("Rust is a systems programming language", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := b.Recall(ctx, "Rust", 5)
	if err == nil {
		t.Fatal("Recall with a cancelled context should fail")
	}
	if !brainerr.Is(err, brainerr.Cancelled) {
		t.Errorf("Recall error = %v, want brainerr.Cancelled", err)
	}
	if results != nil {
		t.Errorf("Recall(cancelled) results = %v, want nil", results)
	}
}

func TestDedupOnSemanticInsert(t *testing.T) {
	b := openTestBrain(t)
	b.Process("Rust is memory safe", "")
	b.Process("Rust is memory safe by default", "")

	all, err := b.store.Semantic.All()
	if err != nil {
		t.Fatalf("Semantic.All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Semantic tier count = %d after near-duplicate insert, want 1", len(all))
	}
}

func TestRecallOnNonsenseQueryReturnsNoResults(t *testing.T) {
	b := openTestBrain(t)
	b.Process("the weather today is sunny and warm", "")

	results, err := b.Recall(context.Background(), "zxqvbmnoexistentword", 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Recall(nonsense word) = %v, want no results", results)
	}
}

func TestRebuildIndexesReconstructsFromPersistedRecords(t *testing.T) {
	b := openTestBrain(t)
	for i := 0; i < 20; i++ {
		if _, err := b.Process("distinct fact number with unique marker alpha beta gamma", ""); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	stats, err := b.RebuildIndexes()
	if err != nil {
		t.Fatalf("RebuildIndexes: %v", err)
	}
	if stats.Docs == 0 {
		t.Error("RebuildIndexes should report a nonzero doc count")
	}

	results, err := b.Recall(context.Background(), "marker", 5)
	if err != nil {
		t.Fatalf("Recall after rebuild: %v", err)
	}
	if len(results) == 0 {
		t.Error("Recall after rebuild should still find records via the reconstructed keyword index")
	}
}

func TestClosedBrainRejectsOperations(t *testing.T) {
	b := openTestBrain(t)
	b.Close()

	if _, err := b.Process("anything", ""); err == nil {
		t.Error("Process after Close should fail")
	}
	if _, err := b.Recall(context.Background(), "anything", 5); err == nil {
		t.Error("Recall after Close should fail")
	}
}

func TestUpdateStrengthClampsAndPersists(t *testing.T) {
	b := openTestBrain(t)
	id, err := b.Process("definition: gravity pulls masses together", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := b.UpdateStrength(id, 5.0); err != nil {
		t.Fatalf("UpdateStrength: %v", err)
	}
	all, _ := b.store.Semantic.All()
	for _, r := range all {
		if r.ID == id && r.Strength != 1.0 {
			t.Errorf("Strength = %f after clamped update, want 1.0", r.Strength)
		}
	}
}

func TestUpdateStrengthUnknownIDReturnsNotFound(t *testing.T) {
	b := openTestBrain(t)
	if err := b.UpdateStrength("does-not-exist", 0.5); !brainerr.Is(err, brainerr.NotFound) {
		t.Errorf("UpdateStrength with unknown id = %v, want brainerr.NotFound", err)
	}
}
