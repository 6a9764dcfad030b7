package critique

import (
	"encoding/json"
	"strconv"
	"strings"
)

// criticReply is the strict schema expected from the critic model. Every
// field is optional; missing or malformed values fall back to safe defaults.
type criticReply struct {
	Scores         Scores
	Critique       string
	ImprovedPrompt string
	IssueTags      []string
}

// parseCriticReply extracts the critic's structured judgment from raw model
// output. It never fails: unparseable replies yield null scores and a
// truncated echo of the raw text as the critique.
func parseCriticReply(raw string) criticReply {
	data, ok := extractJSONObject(raw)
	if !ok {
		return criticReply{Critique: truncate(strings.TrimSpace(raw), 500)}
	}

	reply := criticReply{
		Critique:       asString(data["critique_markdown"]),
		ImprovedPrompt: asString(data["improved_prompt"]),
		IssueTags:      asStringList(data["issue_tags"]),
	}
	if reply.Critique == "" {
		reply.Critique = asString(data["critique"])
	}

	scores := data
	if nested, ok := data["scores"].(map[string]any); ok {
		scores = nested
	}
	reply.Scores = Scores{
		Correctness:       asScore(scores["correctness"]),
		Completeness:      asScore(scores["completeness"]),
		Clarity:           asScore(scores["clarity"]),
		HallucinationRisk: asScore(scores["hallucination_risk"]),
		PromptQuality:     asScore(scores["prompt_quality"]),
	}
	return reply
}

// extractJSONObject pulls the outermost {...} block out of raw and decodes
// it, tolerating prose around the JSON.
func extractJSONObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		return nil, false
	}
	return data, true
}

// asScore coerces a JSON value into a 0-10 score pointer, nil when absent or
// non-numeric.
func asScore(value any) *float64 {
	var score float64
	switch v := value.(type) {
	case float64:
		score = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		score = parsed
	default:
		return nil
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return &score
}

func asString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

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
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
