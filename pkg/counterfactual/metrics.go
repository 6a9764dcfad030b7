package counterfactual

import (
	"math"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

// lcsFScore is a sequence-overlap F-score over word-level longest common
// subsequence, the secondary answer-similarity signal.
func lcsFScore(text1, text2 string) float64 {
	a := similarity.Tokenize(text1)
	b := similarity.Tokenize(text2)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	lcs := float64(prev[len(b)])

	precision := lcs / float64(len(b))
	recall := lcs / float64(len(a))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// chunkOverlap is Jaccard-style overlap of verbatim chunk texts, normalized
// by the original set size.
func chunkOverlap(original, perturbed []core.ScoredChunk) float64 {
	if len(original) == 0 {
		return 0
	}
	originalTexts := make(map[string]struct{}, len(original))
	for _, c := range original {
		originalTexts[c.Chunk.Text] = struct{}{}
	}
	perturbedTexts := make(map[string]struct{}, len(perturbed))
	for _, c := range perturbed {
		perturbedTexts[c.Chunk.Text] = struct{}{}
	}
	var shared int
	for text := range perturbedTexts {
		if _, ok := originalTexts[text]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(originalTexts))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
