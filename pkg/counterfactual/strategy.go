// Package counterfactual perturbs retrieved chunk sets under named
// strategies and measures how sensitive the generated answer is to the
// perturbation.
package counterfactual

import (
	"fmt"
	"math/rand"
	"sort"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

// Strategy names one perturbation of a ranked chunk set.
type Strategy string

const (
	RemoveTop    Strategy = "remove_top"
	RemoveTop3   Strategy = "remove_top_3"
	ReverseOrder Strategy = "reverse_order"
	Random       Strategy = "random"
	LexicalOnly  Strategy = "lexical_only"
)

// AllStrategies returns every supported strategy in canonical order.
func AllStrategies() []Strategy {
	return []Strategy{RemoveTop, RemoveTop3, ReverseOrder, Random, LexicalOnly}
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case RemoveTop, RemoveTop3, ReverseOrder, Random, LexicalOnly:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("counterfactual: unknown strategy %q", name)
}

// Perturb applies strategy to a ranked chunk set and returns the perturbed
// copy. The input is never mutated. LexicalOnly genuinely re-ranks by token
// overlap with the question rather than reusing the original ordering.
func Perturb(chunks []core.ScoredChunk, strategy Strategy, question string, rng *rand.Rand) ([]core.ScoredChunk, error) {
	switch strategy {
	case RemoveTop:
		if len(chunks) <= 1 {
			return []core.ScoredChunk{}, nil
		}
		return rerank(chunks[1:]), nil

	case RemoveTop3:
		if len(chunks) <= 3 {
			return []core.ScoredChunk{}, nil
		}
		return rerank(chunks[3:]), nil

	case ReverseOrder:
		out := make([]core.ScoredChunk, len(chunks))
		for i, c := range chunks {
			out[len(chunks)-1-i] = c
		}
		return rerank(out), nil

	case Random:
		out := append([]core.ScoredChunk(nil), chunks...)
		if rng == nil {
			rng = rand.New(rand.NewSource(rand.Int63()))
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return rerank(out), nil

	case LexicalOnly:
		out := append([]core.ScoredChunk(nil), chunks...)
		questionTokens := similarity.TokenSet(question)
		overlap := make([]float64, len(out))
		for i, c := range out {
			overlap[i] = similarity.Jaccard(questionTokens, similarity.TokenSet(c.Chunk.Text))
		}
		order := make([]int, len(out))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return overlap[order[a]] > overlap[order[b]] })
		reranked := make([]core.ScoredChunk, len(out))
		for pos, idx := range order {
			reranked[pos] = out[idx]
			reranked[pos].PrimaryScore = overlap[idx]
		}
		return rerank(reranked), nil
	}

	return nil, core.NewInputError("unknown counterfactual strategy %q", strategy)
}

// rerank reassigns 1-based ranks after a perturbation.
func rerank(chunks []core.ScoredChunk) []core.ScoredChunk {
	out := append([]core.ScoredChunk(nil), chunks...)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
