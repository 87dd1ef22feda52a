package vector

import (
	"math"
	"sort"
)

// Cosine returns dot(a,b)/(|a||b|). Mismatched lengths, empty vectors and
// zero vectors all score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return max(-1, min(1, dot/math.Sqrt(na*nb)))
}

// tieKey rounds a similarity so scores that differ only by float error rank
// as equal.
func tieKey(s float64) float64 {
	return math.Round(s*1e9) / 1e9
}

type Candidate[T any] struct {
	ID      string
	Vector  []float32
	Payload T
}

type Scored[T any] struct {
	ID         string
	Payload    T
	Similarity float64
}

// TopK ranks candidates by cosine similarity to query, highest first, and
// keeps at most k. Ties keep input order.
func TopK[T any](query []float32, candidates []Candidate[T], k int) []Scored[T] {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	out := make([]Scored[T], 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored[T]{ID: c.ID, Payload: c.Payload, Similarity: Cosine(query, c.Vector)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return tieKey(out[i].Similarity) > tieKey(out[j].Similarity)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
