// Package ranker applies the similarity engine across a chunk pool and
// produces per-method top-k rankings plus cross-method agreement statistics.
package ranker

import (
	"fmt"
	"math"
	"sort"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

// Options controls a ranking pass.
type Options struct {
	K         int
	Methods   []similarity.Method
	DocName   string
	Normalize bool
}

// MethodStats summarizes scores over the entire filtered pool, not just the
// top k.
type MethodStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Result is the outcome of one ranking pass.
type Result struct {
	ByMethod map[similarity.Method][]core.ScoredChunk `json:"by_method"`
	Stats    map[similarity.Method]MethodStats        `json:"stats"`
	// Agreement[m1][m2] is the percentage overlap (by chunk text identity)
	// between the top-k sets of m1 and m2, rounded to one decimal.
	Agreement map[similarity.Method]map[similarity.Method]float64 `json:"agreement"`
}

// Rank scores every chunk in pool once under all requested methods and
// returns per-method rankings. The pool is never mutated.
func Rank(pool []core.ChunkRecord, queryVec []float64, queryText string, opts Options) (*Result, error) {
	if opts.K <= 0 {
		return nil, core.NewInputError("top-k must be positive, got %d", opts.K)
	}
	methods := opts.Methods
	if len(methods) == 0 {
		methods = similarity.AllMethods()
	}
	for _, m := range methods {
		if _, err := similarity.ParseMethod(string(m)); err != nil {
			return nil, core.NewInputError("%v", err)
		}
	}
	if len(pool) == 0 {
		return nil, core.ErrEmptyPool
	}

	filtered := pool
	if opts.DocName != "" {
		filtered = filtered[:0:0]
		for _, chunk := range pool {
			if chunk.DocName == opts.DocName {
				filtered = append(filtered, chunk)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("%w: %s", core.ErrNoChunksForDocument, opts.DocName)
		}
	}

	// One scoring pass covers all five methods.
	allScores := make([]map[string]float64, len(filtered))
	for i, chunk := range filtered {
		allScores[i] = similarity.ScoreAll(queryVec, chunk.Embedding, queryText, chunk.Text, opts.Normalize)
	}

	result := &Result{
		ByMethod:  make(map[similarity.Method][]core.ScoredChunk, len(methods)),
		Stats:     make(map[similarity.Method]MethodStats, len(methods)),
		Agreement: make(map[similarity.Method]map[similarity.Method]float64, len(methods)),
	}

	for _, method := range methods {
		order := make([]int, len(filtered))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return allScores[order[a]][string(method)] > allScores[order[b]][string(method)]
		})

		k := opts.K
		if k > len(order) {
			k = len(order)
		}
		top := make([]core.ScoredChunk, 0, k)
		for rank, idx := range order[:k] {
			top = append(top, core.ScoredChunk{
				Chunk:        filtered[idx],
				AllScores:    allScores[idx],
				Rank:         rank + 1,
				PrimaryScore: allScores[idx][string(method)],
			})
		}
		result.ByMethod[method] = top
		result.Stats[method] = poolStats(allScores, string(method))
	}

	for _, m1 := range methods {
		result.Agreement[m1] = make(map[similarity.Method]float64, len(methods))
		for _, m2 := range methods {
			result.Agreement[m1][m2] = agreement(result.ByMethod[m1], result.ByMethod[m2])
		}
	}

	return result, nil
}

func poolStats(allScores []map[string]float64, method string) MethodStats {
	stats := MethodStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, scores := range allScores {
		s := scores[method]
		if s < stats.Min {
			stats.Min = s
		}
		if s > stats.Max {
			stats.Max = s
		}
		sum += s
	}
	stats.Avg = sum / float64(len(allScores))
	return stats
}

// agreement divides by the effective k (the realized top-set size) so the
// diagonal stays at 100 even when the pool is smaller than the requested k.
func agreement(top1, top2 []core.ScoredChunk) float64 {
	k := len(top1)
	if k == 0 {
		return 0
	}
	texts := make(map[string]struct{}, len(top1))
	for _, sc := range top1 {
		texts[sc.Chunk.Text] = struct{}{}
	}
	var overlap int
	for _, sc := range top2 {
		if _, ok := texts[sc.Chunk.Text]; ok {
			overlap++
		}
	}
	return math.Round(float64(overlap)/float64(k)*1000) / 10
}
