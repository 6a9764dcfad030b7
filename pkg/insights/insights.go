// Package insights asks a model to analyze an answer and its supporting
// context and parses the reply into a fixed schema. The parser is defensive:
// a malformed reply degrades to empty fields, never to an error.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"rageval/pkg/core"
)

const insightsTemplate = `You are an assistant that analyzes an answer and its supporting context.

Question:
%s

Answer:
%s

Context:
%s

Return a STRICT JSON object with the following keys:

- summary: short summary of the answer (string)
- key_points: list of 3-7 key bullet points (array of strings)
- entities: list of important entities (array of strings)
- suggested_questions: list of 3-5 follow-up questions (array of strings)
- mindmap: compact text representation of a mindmap (string)
- reading_difficulty: one of "beginner", "intermediate", "advanced" (string)
- sentiment: short sentiment label like "neutral", "positive", "critical" (string)
- keywords: list of important keywords/phrases (array of strings)
- highlights: OPTIONAL list of groups of phrases to highlight (array of array of strings)
- sentence_importance: array of objects, each with:
    - sentence: an important sentence from the CONTEXT (string)
    - score: integer from 0 to 5 indicating importance
      (5 = absolutely key, 3 = helpful, 1 = minor, 0 = irrelevant)

IMPORTANT:
- Only return valid JSON, no commentary.
- For sentence_importance, include at most 15 sentences, pick those that
  best explain or support the answer for this question.
`

// SentenceImportance scores one context sentence from 0 to 5.
type SentenceImportance struct {
	Sentence string `json:"sentence"`
	Score    int    `json:"score"`
}

// Insights is the validated analysis of one answer.
type Insights struct {
	Summary            string               `json:"summary"`
	KeyPoints          []string             `json:"key_points"`
	Entities           []string             `json:"entities"`
	SuggestedQuestions []string             `json:"suggested_questions"`
	Mindmap            string               `json:"mindmap"`
	ReadingDifficulty  string               `json:"reading_difficulty"`
	Sentiment          string               `json:"sentiment"`
	Keywords           []string             `json:"keywords"`
	Highlights         [][]string           `json:"highlights"`
	SentenceImportance []SentenceImportance `json:"sentence_importance"`
}

// Generate runs the insights prompt against model and validates the reply.
func Generate(ctx context.Context, model core.Model, question, answer string, contextBlocks []string) (*Insights, error) {
	if model == nil {
		return nil, fmt.Errorf("insights: model is required")
	}
	prompt := fmt.Sprintf(insightsTemplate, question, answer, strings.Join(contextBlocks, "\n\n---\n\n"))
	resp, err := model.Generate(ctx, prompt, core.GenerateOptions{Temperature: 0})
	if err != nil {
		return nil, core.NewProviderError(model.Name(), err)
	}
	insights := Parse(resp.Content)
	return &insights, nil
}

// Parse extracts and validates the insights schema from a raw model reply.
func Parse(raw string) Insights {
	data := extractJSONObject(raw)

	out := Insights{
		Summary:            asString(data["summary"]),
		KeyPoints:          asStringList(data["key_points"]),
		Entities:           asStringList(data["entities"]),
		SuggestedQuestions: asStringList(data["suggested_questions"]),
		ReadingDifficulty:  asString(data["reading_difficulty"]),
		Sentiment:          asString(data["sentiment"]),
		Keywords:           asStringList(data["keywords"]),
	}

	// Mindmaps sometimes come back as a list; flatten to one string.
	switch v := data["mindmap"].(type) {
	case string:
		out.Mindmap = v
	case []any:
		out.Mindmap = strings.Join(asStringList(v), "\n")
	}

	if groups, ok := data["highlights"].([]any); ok {
		for _, group := range groups {
			out.Highlights = append(out.Highlights, asStringList(group))
		}
	}

	if items, ok := data["sentence_importance"].([]any); ok {
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			sentence := strings.TrimSpace(asString(obj["sentence"]))
			if sentence == "" {
				continue
			}
			out.SentenceImportance = append(out.SentenceImportance, SentenceImportance{
				Sentence: sentence,
				Score:    clampScore(obj["score"]),
			})
		}
	}

	return out
}

// extractJSONObject finds the outermost JSON object in raw, returning an
// empty map when none parses.
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

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

// asStringList coerces a list of mixed values to strings, rendering
// {"name", "type"} objects the way the source model tends to emit entities.
func asStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, fmt.Sprintf("%g", v))
		case map[string]any:
			name := asString(v["name"])
			kind := asString(v["type"])
			if kind == "" {
				kind = asString(v["category"])
			}
			switch {
			case name != "" && kind != "":
				out = append(out, fmt.Sprintf("%s (%s)", name, kind))
			case name != "":
				out = append(out, name)
			default:
				out = append(out, fmt.Sprintf("%v", v))
			}
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func clampScore(value any) int {
	var score int
	switch v := value.(type) {
	case float64:
		score = int(v)
	case string:
		fmt.Sscanf(v, "%d", &score)
	}
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}
