package faithfulness

import (
	"sort"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

const redundantPairThreshold = 0.6

// RedundantPair names two chunks whose token overlap exceeds the redundancy
// threshold.
type RedundantPair struct {
	Chunk1     int     `json:"chunk_1"`
	Chunk2     int     `json:"chunk_2"`
	Similarity float64 `json:"similarity"`
	Doc1       string  `json:"doc_1"`
	Doc2       string  `json:"doc_2"`
}

// QualityReport measures redundancy, diversity, and coverage within a
// retrieved chunk set, independent of any answer.
// DiversityScore is always the exact complement of ChunkRedundancy.
type QualityReport struct {
	ChunkRedundancy        float64         `json:"chunk_redundancy"`
	DiversityScore         float64         `json:"diversity_score"`
	DocumentCoverage       int             `json:"document_coverage"`
	UniqueDocuments        []string        `json:"unique_documents"`
	LexicalSemanticBalance float64         `json:"lexical_semantic_balance"`
	AvgChunkSimilarity     float64         `json:"avg_chunk_similarity"`
	RedundancyDetails      []RedundantPair `json:"redundancy_details"`
}

// ScoreQuality computes retrieval quality metrics over a chunk set.
func ScoreQuality(chunks []core.ScoredChunk) QualityReport {
	if len(chunks) == 0 {
		return QualityReport{
			DiversityScore:         1,
			UniqueDocuments:        []string{},
			LexicalSemanticBalance: 0.5,
			RedundancyDetails:      []RedundantPair{},
		}
	}

	tokens := make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		tokens[i] = similarity.TokenSet(c.Chunk.Text)
	}

	var pairSum float64
	var pairCount int
	details := []RedundantPair{}
	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			sim := similarity.Jaccard(tokens[i], tokens[j])
			pairSum += sim
			pairCount++
			if sim > redundantPairThreshold {
				details = append(details, RedundantPair{
					Chunk1:     i,
					Chunk2:     j,
					Similarity: round3(sim),
					Doc1:       chunks[i].Chunk.DocName,
					Doc2:       chunks[j].Chunk.DocName,
				})
			}
		}
	}
	sort.Slice(details, func(a, b int) bool { return details[a].Similarity > details[b].Similarity })
	if len(details) > 5 {
		details = details[:5]
	}

	var redundancy float64
	if pairCount > 0 {
		redundancy = round3(pairSum / float64(pairCount))
	}

	seen := make(map[string]struct{})
	var uniqueDocs []string
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.DocName]; !ok {
			seen[c.Chunk.DocName] = struct{}{}
			uniqueDocs = append(uniqueDocs, c.Chunk.DocName)
		}
	}
	sort.Strings(uniqueDocs)

	return QualityReport{
		ChunkRedundancy:        redundancy,
		DiversityScore:         1 - redundancy,
		DocumentCoverage:       len(uniqueDocs),
		UniqueDocuments:        uniqueDocs,
		LexicalSemanticBalance: round3(lexicalSemanticBalance(chunks)),
		AvgChunkSimilarity:     redundancy,
		RedundancyDetails:      details,
	}
}

// lexicalSemanticBalance maps the average cosine-vs-hybrid score difference
// to [0,1]: 0.5 is balanced, above 0.5 leans semantic, below leans lexical.
// Chunk sets without comparable scores default to 0.5.
func lexicalSemanticBalance(chunks []core.ScoredChunk) float64 {
	var cosineSum, hybridSum float64
	var cosineN, hybridN int
	for _, c := range chunks {
		if c.AllScores == nil {
			continue
		}
		if s, ok := c.AllScores[string(similarity.Cosine)]; ok {
			cosineSum += s
			cosineN++
		}
		if s, ok := c.AllScores[string(similarity.Hybrid)]; ok {
			hybridSum += s
			hybridN++
		}
	}
	if cosineN == 0 || hybridN == 0 {
		return 0.5
	}
	difference := cosineSum/float64(cosineN) - hybridSum/float64(hybridN)
	return clamp01(0.5 + difference/2)
}
