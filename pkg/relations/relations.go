// Package relations computes pairwise document similarity from mean chunk
// embeddings and asks a model to narrate how the documents relate. The
// similarity numbers in the result always come from our own math, never
// from the model.
package relations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

const (
	DefaultMaxPairs      = 12
	DefaultMinSimilarity = 0.2
	previewChars         = 1200
)

// PairRelation describes one document pair.
type PairRelation struct {
	DocA         string  `json:"doc_a"`
	DocB         string  `json:"doc_b"`
	Similarity   float64 `json:"similarity"`
	Relationship string  `json:"relationship"`
}

// CrossDocRelations is the full cross-document analysis.
type CrossDocRelations struct {
	Documents    []string          `json:"documents"`
	Topics       map[string]string `json:"topics"`
	GlobalThemes []string          `json:"global_themes"`
	Relations    []PairRelation    `json:"relations"`
}

// DocumentStore is the slice of the chunk store this analysis needs.
type DocumentStore interface {
	DocumentEmbeddings(ctx context.Context) (map[string][]float64, error)
	DocumentText(ctx context.Context, docName string, maxChars int) (string, error)
}

// Analyzer narrates cross-document relations.
type Analyzer struct {
	Store         DocumentStore
	Model         core.Model
	MaxPairs      int
	MinSimilarity float64
}

// Analyze computes document-pair cosine similarities, keeps the strongest
// pairs, and asks the model for a relationship narration per kept pair.
func (a *Analyzer) Analyze(ctx context.Context) (*CrossDocRelations, error) {
	if a.Store == nil || a.Model == nil {
		return nil, fmt.Errorf("relations: store and model are required")
	}
	maxPairs := a.MaxPairs
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	minSim := a.MinSimilarity
	if minSim <= 0 {
		minSim = DefaultMinSimilarity
	}

	embeddings, err := a.Store.DocumentEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(embeddings))
	for doc := range embeddings {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	if len(docs) < 2 {
		return nil, core.NewInputError("need at least two documents to analyze relations, have %d", len(docs))
	}

	pairs := make([]PairRelation, 0, len(docs)*(len(docs)-1)/2)
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			pairs = append(pairs, PairRelation{
				DocA:       docs[i],
				DocB:       docs[j],
				Similarity: similarity.CosineSim(embeddings[docs[i]], embeddings[docs[j]]),
			})
		}
	}
	sort.SliceStable(pairs, func(x, y int) bool { return pairs[x].Similarity > pairs[y].Similarity })

	filtered := pairs[:0:0]
	for _, pair := range pairs {
		if pair.Similarity >= minSim {
			filtered = append(filtered, pair)
		}
	}
	// All pairs below the floor still get narrated, capped, so sparse
	// corpora produce a result instead of an empty one.
	if len(filtered) == 0 {
		filtered = pairs
	}
	if len(filtered) > maxPairs {
		filtered = filtered[:maxPairs]
	}

	prompt, err := a.buildPrompt(ctx, docs, filtered)
	if err != nil {
		return nil, err
	}
	resp, err := a.Model.Generate(ctx, prompt, core.GenerateOptions{Temperature: 0})
	if err != nil {
		return nil, core.NewProviderError(a.Model.Name(), err)
	}

	return coerce(resp.Content, docs, filtered), nil
}

func (a *Analyzer) buildPrompt(ctx context.Context, docs []string, pairs []PairRelation) (string, error) {
	var docBlocks []string
	for _, doc := range docs {
		preview, err := a.Store.DocumentText(ctx, doc, previewChars)
		if err != nil || strings.TrimSpace(preview) == "" {
			preview = "(no preview available)"
		}
		docBlocks = append(docBlocks, fmt.Sprintf("DOC: %s\nPREVIEW:\n%s\n---", doc, preview))
	}

	pairNames := make([]string, len(pairs))
	for i, pair := range pairs {
		pairNames[i] = fmt.Sprintf("%s <-> %s", pair.DocA, pair.DocB)
	}

	return fmt.Sprintf(relationsTemplate, strings.Join(docBlocks, "\n"), strings.Join(pairNames, "\n")), nil
}

const relationsTemplate = `You are an expert academic reviewer. Your job is to explain, in depth, how documents relate based ONLY on their content.

PROCESS (you MUST follow this step-by-step):
1. For EACH DOCUMENT PREVIEW, infer its PRIMARY TOPIC in 1-3 words.
2. For EACH PAIR of documents, compare ONLY their primary topics.
3. If topics DO strongly overlap, produce a detailed academic relationship explanation.
4. If topics DO NOT clearly overlap, describe the pair as conceptually more distant within the broader subject area. DO NOT say 'unrelated'.
5. Base ALL reasoning strictly on PREVIEW TEXT.
6. Never invent details that are not supported by the preview.
7. Never mention embeddings, similarity scores, or model behaviour.

DOCUMENTS (with previews):
===========================
%s

PAIRS TO ANALYZE:
==================
%s

Return STRICT JSON ONLY in this format:
{
  "topics": {
      "docname": "primary topic (1-3 words)"
  },
  "global_themes": ["theme1", "theme2"],
  "relations": [
    {
      "doc_a": "exact document name",
      "doc_b": "exact document name",
      "relationship": "A detailed explanation following the rules above."
    }
  ]
}

Output ONLY valid JSON.
`

// coerce validates the model reply against the pairs we computed, attaching
// our similarities by (doc_a, doc_b) lookup in either order.
func coerce(raw string, docs []string, pairs []PairRelation) *CrossDocRelations {
	result := &CrossDocRelations{
		Documents: docs,
		Topics:    map[string]string{},
	}

	simLookup := make(map[[2]string]float64, len(pairs)*2)
	for _, pair := range pairs {
		simLookup[[2]string{pair.DocA, pair.DocB}] = pair.Similarity
		simLookup[[2]string{pair.DocB, pair.DocA}] = pair.Similarity
	}

	data := extractJSONObject(raw)

	if topics, ok := data["topics"].(map[string]any); ok {
		for doc, topic := range topics {
			if s, ok := topic.(string); ok {
				result.Topics[doc] = s
			}
		}
	}

	switch themes := data["global_themes"].(type) {
	case []any:
		for _, theme := range themes {
			result.GlobalThemes = append(result.GlobalThemes, fmt.Sprintf("%v", theme))
		}
	case string:
		result.GlobalThemes = []string{themes}
	}

	if items, ok := data["relations"].([]any); ok {
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			docA := strings.TrimSpace(stringField(obj, "doc_a"))
			docB := strings.TrimSpace(stringField(obj, "doc_b"))
			if docA == "" || docB == "" {
				continue
			}
			result.Relations = append(result.Relations, PairRelation{
				DocA:         docA,
				DocB:         docB,
				Similarity:   simLookup[[2]string{docA, docB}],
				Relationship: strings.TrimSpace(stringField(obj, "relationship")),
			})
		}
	}

	return result
}

func extractJSONObject(raw string) map[string]any {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return map[string]any{}
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		return map[string]any{}
	}
	return data
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}
