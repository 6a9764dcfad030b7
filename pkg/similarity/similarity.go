// Package similarity holds the pure scoring functions shared by ranking,
// cross-document relation, and counterfactual code paths. All functions are
// stateless and safe for concurrent use.
package similarity

import (
	"fmt"
	"math"
)

// Method selects one similarity definition.
type Method string

const (
	Cosine Method = "cosine"
	Dot    Method = "dot"
	NegL2  Method = "neg_l2"
	NegL1  Method = "neg_l1"
	Hybrid Method = "hybrid"
)

// MismatchSentinel is returned by distance-based methods on dimension
// mismatch so the affected chunk sorts last.
const MismatchSentinel = -1e9

// AllMethods returns every supported method in canonical order.
func AllMethods() []Method {
	return []Method{Cosine, Dot, NegL2, NegL1, Hybrid}
}

// ParseMethod validates a method name.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case Cosine, Dot, NegL2, NegL1, Hybrid:
		return Method(name), nil
	}
	return "", fmt.Errorf("similarity: unknown method %q", name)
}

// Score computes the similarity of one query/chunk pair under a method.
// Vectors are optionally L2-normalized first. Dimension mismatches yield
// sentinel scores, never errors.
func Score(method Method, queryVec, chunkVec []float64, queryText, chunkText string, normalize bool) float64 {
	if normalize {
		queryVec = Normalize(queryVec)
		chunkVec = Normalize(chunkVec)
	}
	switch method {
	case Cosine:
		return CosineSim(queryVec, chunkVec)
	case Dot:
		return DotProduct(queryVec, chunkVec)
	case NegL2:
		return negEuclidean(queryVec, chunkVec)
	case NegL1:
		return negManhattan(queryVec, chunkVec)
	case Hybrid:
		return 0.7*CosineSim(queryVec, chunkVec) + 0.3*TextJaccard(queryText, chunkText)
	}
	return 0
}

// ScoreAll computes every method from a single input pair, keyed by method
// name for embedding into ScoredChunk.AllScores.
func ScoreAll(queryVec, chunkVec []float64, queryText, chunkText string, normalize bool) map[string]float64 {
	scores := make(map[string]float64, 5)
	for _, m := range AllMethods() {
		scores[string(m)] = Score(m, queryVec, chunkVec, queryText, chunkText, normalize)
	}
	return scores
}

// CosineSim returns dot(a,b)/(|a|*|b|), or 0.0 when either norm is zero or
// the dimensions differ.
func CosineSim(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DotProduct returns the raw dot product, 0.0 on dimension mismatch.
func DotProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func negEuclidean(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MismatchSentinel
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return -math.Sqrt(sum)
}

func negManhattan(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MismatchSentinel
	}
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return -sum
}

// Normalize returns an L2-normalized copy of v. Zero vectors come back
// unchanged.
func Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
