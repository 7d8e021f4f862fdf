// Package vecmath implements the cosine/dot/L2 kernel used across the
// memory engine. There is no portable SIMD path in the Go standard library
// or anywhere in the dependency pack, so the "lanewise" structure of the
// original vectorized routine is approximated with an 8-wide unrolled loop;
// a plain scalar loop handles the remainder and any unusual-length input,
// giving the same two-path (fast / fallback) shape without platform build
// tags.
package vecmath

import (
	"math"
	"sort"
)

const lane = 8

// Dot returns the dot product of a and b. Returns 0 on length mismatch or
// empty input.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return dotUnrolled(a, b)
}

func dotUnrolled(a, b []float32) float32 {
	var acc [lane]float32
	n := len(a)
	full := n - n%lane
	for i := 0; i < full; i += lane {
		for l := 0; l < lane; l++ {
			acc[l] += a[i+l] * b[i+l]
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for i := full; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// L2Norm returns the Euclidean norm of v.
func L2Norm(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	sum := dotUnrolled(v, v)
	return float32(math.Sqrt(float64(sum)))
}

// Cosine returns the cosine similarity of a and b, in [-1, 1]. Returns 0 on
// length mismatch, empty input, or either vector having zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := L2Norm(a)
	nb := L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// DotScalar and friends are the plain scalar fallback, kept distinct from
// the unrolled path so tests can assert the two agree within tolerance.
func DotScalar(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func L2NormScalar(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(DotScalar(v, v))))
}

func CosineScalar(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := L2NormScalar(a)
	nb := L2NormScalar(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return DotScalar(a, b) / (na * nb)
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	n := L2Norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// BatchCosine scores query against every row of vectors.
func BatchCosine(query []float32, vectors [][]float32) []float32 {
	scores := make([]float32, len(vectors))
	for i, v := range vectors {
		scores[i] = Cosine(query, v)
	}
	return scores
}

// ScoredIndex pairs a vector slot with its similarity score.
type ScoredIndex struct {
	Index int
	Score float32
}

// TopKSimilar returns the k highest-scoring indices against query, sorted
// descending by score, ties broken by ascending index (insertion order).
func TopKSimilar(query []float32, vectors [][]float32, k int) []ScoredIndex {
	scores := BatchCosine(query, vectors)
	out := make([]ScoredIndex, len(scores))
	for i, s := range scores {
		out[i] = ScoredIndex{Index: i, Score: s}
	}
	// Stable sort preserves insertion order among equal scores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k < len(out) {
		out = out[:k]
	}
	return out
}
