package hnsw

import (
	"math"
	"testing"

	"github.com/coldforge/membrain/internal/vecmath"
)

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ix := New(3, 42)
	if err := ix.Add("a", []float32{1, 2}); err == nil {
		t.Error("Add with wrong dimension should error")
	}
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	ix := New(2, 42)
	if err := ix.Add("a", []float32{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add("a", []float32{0, 1}); err != nil {
		t.Fatalf("Add dup: %v", err)
	}
	if ix.Count() != 1 {
		t.Errorf("Count = %d, want 1 after duplicate add", ix.Count())
	}
}

func TestSearchFindsNearDuplicateTop1(t *testing.T) {
	ix := New(4, 42)
	v1 := []float32{1, 0, 0, 0}
	v2 := []float32{0.99, 0.01, 0, 0}
	v3 := []float32{0, 1, 0, 0}
	_ = ix.Add("v1", v1)
	_ = ix.Add("v2", v2)
	_ = ix.Add("v3", v3)

	results := ix.Search(v1, 1)
	if len(results) != 1 || results[0].ID != "v1" {
		t.Fatalf("Search(v1, 1) = %+v, want top id v1", results)
	}

	bruteForce := vecmath.Cosine(v1, v1)
	if results[0].Similarity < float32(bruteForce)-1e-3 {
		t.Errorf("HNSW top-1 similarity %v below brute force %v - 1e-3", results[0].Similarity, bruteForce)
	}
}

func TestRemoveIsSoftAndExcludesFromSearch(t *testing.T) {
	ix := New(2, 1)
	_ = ix.Add("a", []float32{1, 0})
	_ = ix.Add("b", []float32{0, 1})
	if !ix.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if ix.Remove("a") {
		t.Error("second Remove(a) should return false")
	}
	results := ix.Search([]float32{1, 0}, 5)
	for _, r := range results {
		if r.ID == "a" {
			t.Errorf("removed id %q should not appear in search results", r.ID)
		}
	}
}

func TestDistanceScaleBounds(t *testing.T) {
	identical := distanceScale(1.0)
	if identical > math.MaxUint32/100 {
		t.Errorf("distance for identical vectors = %d, want near 0", identical)
	}
	orthogonal := distanceScale(0.0)
	if orthogonal < math.MaxUint32/4 {
		t.Errorf("distance for orthogonal vectors = %d, want > MaxUint32/4", orthogonal)
	}
	opposite := distanceScale(-1.0)
	if opposite < math.MaxUint32/2 {
		t.Errorf("distance for opposite vectors = %d, want > MaxUint32/2", opposite)
	}
}

func TestClear(t *testing.T) {
	ix := New(2, 1)
	_ = ix.Add("a", []float32{1, 0})
	ix.Clear()
	if ix.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", ix.Count())
	}
	if ix.Stats().Dimension != 2 {
		t.Errorf("dimension should survive Clear")
	}
}

func TestAddBatch(t *testing.T) {
	ix := New(2, 1)
	ids := []string{"a", "b", "a"}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	n := ix.AddBatch(ids, vectors)
	if n != 2 {
		t.Errorf("AddBatch inserted = %d, want 2 (duplicate skipped)", n)
	}
}
