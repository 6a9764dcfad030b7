package counterfactual

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"rageval/pkg/core"
	"rageval/pkg/qa"
	"rageval/pkg/similarity"
)

const noChunksAnswer = "Unable to answer - no chunks available."

// Result compares an answer generated over the original evidence with one
// generated over the perturbed evidence.
type Result struct {
	Strategy                 Strategy `json:"counterfactual_type"`
	OriginalAnswer           string   `json:"original_answer"`
	CounterfactualAnswer     string   `json:"counterfactual_answer"`
	AnswerSimilarity         float64  `json:"answer_similarity"`
	SemanticSimilarity       float64  `json:"answer_similarity_semantic"`
	JaccardSimilarity        float64  `json:"answer_similarity_jaccard"`
	LCSFScore                float64  `json:"answer_similarity_lcs_f"`
	ChunkOverlap             float64  `json:"chunk_overlap"`
	RetrievalDependence      float64  `json:"retrieval_dependence"`
	OriginalChunkCount       int      `json:"original_chunks_count"`
	CounterfactualChunkCount int      `json:"counterfactual_chunks_count"`
	OriginalAnswerLength     int      `json:"original_answer_length"`
	CounterfactualLength     int      `json:"counterfactual_answer_length"`
	AnswerCollapsed          bool     `json:"answer_collapsed"`
	ChunksUsed               []core.ScoredChunk `json:"chunks_used"`
}

// Analyzer regenerates answers over perturbed chunk sets and quantifies the
// answer's dependence on retrieval.
type Analyzer struct {
	Model    core.Model
	Embedder core.Embedder
	Options  core.GenerateOptions
	Rand     *rand.Rand
}

// Run perturbs chunks under strategy, regenerates an answer with the same
// model and temperature, and compares it to the original answer. Pass
// originalAnswer as "" to have it generated here.
func (a *Analyzer) Run(ctx context.Context, question string, chunks []core.ScoredChunk, strategy Strategy, originalAnswer string) (*Result, error) {
	if a.Model == nil {
		return nil, fmt.Errorf("counterfactual: model is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, core.NewInputError("question cannot be empty")
	}
	if len(chunks) == 0 {
		return nil, core.ErrEmptyPool
	}

	perturbed, err := Perturb(chunks, strategy, question, a.Rand)
	if err != nil {
		return nil, err
	}

	answerer := qa.Answerer{Model: a.Model, Options: a.Options}

	if originalAnswer == "" {
		resp, err := answerer.Answer(ctx, question, chunks)
		if err != nil {
			return nil, err
		}
		originalAnswer = resp.Content
	}

	cfAnswer := noChunksAnswer
	if len(perturbed) > 0 {
		resp, err := answerer.Answer(ctx, question, perturbed)
		if err != nil {
			return nil, err
		}
		cfAnswer = resp.Content
	}

	result := &Result{
		Strategy:                 strategy,
		OriginalAnswer:           originalAnswer,
		CounterfactualAnswer:     cfAnswer,
		JaccardSimilarity:        round3(similarity.TextJaccard(originalAnswer, cfAnswer)),
		LCSFScore:                round3(lcsFScore(originalAnswer, cfAnswer)),
		ChunkOverlap:             round3(chunkOverlap(chunks, perturbed)),
		OriginalChunkCount:       len(chunks),
		CounterfactualChunkCount: len(perturbed),
		OriginalAnswerLength:     len(originalAnswer),
		CounterfactualLength:     len(cfAnswer),
		AnswerCollapsed:          float64(len(cfAnswer)) < 0.5*float64(len(originalAnswer)),
		ChunksUsed:               perturbed,
	}

	result.SemanticSimilarity = round3(a.semanticSimilarity(ctx, originalAnswer, cfAnswer))

	// Semantic similarity is the primary metric when the embedder produced
	// one; token Jaccard otherwise.
	result.AnswerSimilarity = result.SemanticSimilarity
	if result.AnswerSimilarity == 0 {
		result.AnswerSimilarity = result.JaccardSimilarity
	}

	// Dependence is attributed to retrieval only when the chunk sets
	// meaningfully differ.
	if result.ChunkOverlap < 0.5 {
		result.RetrievalDependence = round3(1 - result.AnswerSimilarity)
	} else {
		result.RetrievalDependence = result.AnswerSimilarity
	}

	return result, nil
}

// semanticSimilarity embeds both answers and returns their clamped cosine
// similarity, 0 when no embedder is available or the call fails.
func (a *Analyzer) semanticSimilarity(ctx context.Context, text1, text2 string) float64 {
	if a.Embedder == nil {
		return 0
	}
	vecs, err := a.Embedder.Embed(ctx, []string{text1, text2})
	if err != nil || len(vecs) != 2 {
		return 0
	}
	return clamp01(similarity.CosineSim(vecs[0], vecs[1]))
}
