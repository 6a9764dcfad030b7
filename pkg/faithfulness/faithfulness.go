// Package faithfulness measures how well a generated answer is grounded in
// retrieved evidence, and how healthy a retrieved chunk set is on its own.
package faithfulness

import (
	"context"
	"math"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

// Default support thresholds. They are heuristics, so Scorer keeps them
// configurable.
const (
	DefaultLexicalThreshold  = 0.3
	DefaultSemanticThreshold = 0.5
)

// SupportingChunk identifies one chunk that supports a sentence.
type SupportingChunk struct {
	ChunkID            int     `json:"chunk_id"`
	DocName            string  `json:"doc_name"`
	LexicalOverlap     float64 `json:"lexical_overlap"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	Rank               int     `json:"rank"`
}

// SentenceSupport records the evidence found for one answer sentence.
type SentenceSupport struct {
	Sentence           string            `json:"sentence"`
	SentenceID         int               `json:"sentence_id"`
	Supported          bool              `json:"supported"`
	Confidence         float64           `json:"confidence"`
	ConfidenceLexical  float64           `json:"confidence_lexical"`
	ConfidenceSemantic float64           `json:"confidence_semantic"`
	SupportingChunks   []SupportingChunk `json:"supporting_chunks"`
	Quotes             []string          `json:"quotes"`
}

// Report is the per-answer faithfulness result.
// HallucinationRisk is always the exact complement of EvidenceCoverage.
type Report struct {
	SentenceSupport    []SentenceSupport `json:"sentence_support"`
	ExtractedQuotes    []string          `json:"extracted_quotes"`
	HallucinationRisk  float64           `json:"hallucination_risk"`
	EvidenceCoverage   float64           `json:"evidence_coverage"`
	CitationCoverage   float64           `json:"citation_coverage"`
	TotalSentences     int               `json:"total_sentences"`
	SupportedSentences int               `json:"supported_sentences"`
}

// Scorer segments answers and scores each sentence against the retrieved
// chunks. A nil Embedder degrades gracefully to a lexical-only signal.
type Scorer struct {
	Embedder          core.Embedder
	LexicalThreshold  float64
	SemanticThreshold float64
}

// NewScorer returns a Scorer with the default thresholds.
func NewScorer(embedder core.Embedder) *Scorer {
	return &Scorer{
		Embedder:          embedder,
		LexicalThreshold:  DefaultLexicalThreshold,
		SemanticThreshold: DefaultSemanticThreshold,
	}
}

// Score analyzes how well answer is supported by chunks. The question is
// context only and not scored directly. Embedding failures are swallowed:
// semantic confidence drops to zero and the lexical signal carries the
// report.
func (s *Scorer) Score(ctx context.Context, answer string, chunks []core.ScoredChunk, question string) Report {
	_ = question

	sentences := SplitSentences(answer)
	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.Chunk.Text
	}

	// Embed chunks and sentences once per call; every sentence/chunk pair
	// reuses these vectors.
	var chunkVecs, sentenceVecs [][]float64
	if s.Embedder != nil && len(sentences) > 0 && len(chunkTexts) > 0 {
		if vecs, err := s.Embedder.Embed(ctx, chunkTexts); err == nil {
			chunkVecs = vecs
		}
		if chunkVecs != nil {
			if vecs, err := s.Embedder.Embed(ctx, sentences); err == nil {
				sentenceVecs = vecs
			}
		}
	}

	chunkTokens := make([]map[string]struct{}, len(chunkTexts))
	for i, text := range chunkTexts {
		chunkTokens[i] = similarity.TokenSet(text)
	}

	report := Report{TotalSentences: len(sentences)}
	for idx, sentence := range sentences {
		var sentenceVec []float64
		if sentenceVecs != nil && idx < len(sentenceVecs) {
			sentenceVec = sentenceVecs[idx]
		}
		support := s.analyzeSentence(sentence, idx, chunks, chunkTokens, chunkVecs, sentenceVec)
		report.SentenceSupport = append(report.SentenceSupport, support)
		if support.Supported {
			report.SupportedSentences++
		}
		report.ExtractedQuotes = append(report.ExtractedQuotes, support.Quotes...)
	}

	report.ExtractedQuotes = dedupeQuotes(report.ExtractedQuotes, maxQuotesPerReport)

	if report.TotalSentences > 0 {
		report.EvidenceCoverage = round3(float64(report.SupportedSentences) / float64(report.TotalSentences))
	}
	report.HallucinationRisk = 1 - report.EvidenceCoverage
	report.CitationCoverage = math.Round(report.EvidenceCoverage*1000) / 10
	return report
}

func (s *Scorer) analyzeSentence(
	sentence string,
	sentenceID int,
	chunks []core.ScoredChunk,
	chunkTokens []map[string]struct{},
	chunkVecs [][]float64,
	sentenceVec []float64,
) SentenceSupport {
	sentenceTokens := similarity.TokenSet(sentence)

	support := SentenceSupport{Sentence: sentence, SentenceID: sentenceID}
	var maxLexical, maxSemantic float64
	var quotes []string

	for idx, chunk := range chunks {
		lexical := overlapRatio(sentenceTokens, chunkTokens[idx])

		var semantic float64
		if sentenceVec != nil && chunkVecs != nil && idx < len(chunkVecs) {
			semantic = clamp01(similarity.CosineSim(sentenceVec, chunkVecs[idx]))
		}

		phrases := matchingPhrases(sentence, chunk.Chunk.Text)

		if lexical > s.LexicalThreshold || semantic > s.SemanticThreshold || len(phrases) > 0 {
			rank := chunk.Rank
			if rank == 0 {
				rank = idx + 1
			}
			support.SupportingChunks = append(support.SupportingChunks, SupportingChunk{
				ChunkID:            idx,
				DocName:            chunk.Chunk.DocName,
				LexicalOverlap:     round3(lexical),
				SemanticSimilarity: round3(semantic),
				Rank:               rank,
			})
			quotes = append(quotes, phrases...)
			maxLexical = math.Max(maxLexical, lexical)
			maxSemantic = math.Max(maxSemantic, semantic)
		}
	}

	support.Quotes = dedupeQuotes(quotes, maxQuotesPerSent)
	support.Supported = maxLexical > s.LexicalThreshold || maxSemantic > s.SemanticThreshold || len(support.Quotes) > 0
	support.ConfidenceLexical = round3(maxLexical)
	support.ConfidenceSemantic = round3(maxSemantic)
	support.Confidence = round3(math.Max(maxLexical, maxSemantic))
	return support
}

// overlapRatio is |sentence ∩ chunk| / |sentence|, 0 if either side is empty.
func overlapRatio(sentenceTokens, chunkTokens map[string]struct{}) float64 {
	if len(sentenceTokens) == 0 || len(chunkTokens) == 0 {
		return 0
	}
	var shared int
	for t := range sentenceTokens {
		if _, ok := chunkTokens[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(sentenceTokens))
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
