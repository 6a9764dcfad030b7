package faithfulness

import "strings"

const (
	minQuoteWords      = 5
	maxQuoteWords      = 15
	maxQuotesPerSent   = 2
	maxQuotesPerReport = 3
)

// matchingPhrases returns the n-grams of the sentence (>= minQuoteWords
// words, windows capped at maxQuoteWords) that appear verbatim in the chunk,
// deduplicated case-insensitively.
func matchingPhrases(sentence, chunk string) []string {
	words := strings.Fields(sentence)
	lowerWords := strings.Fields(strings.ToLower(sentence))
	chunkLower := strings.ToLower(chunk)

	var quotes []string
	seen := make(map[string]struct{})
	for n := minQuoteWords; n <= len(lowerWords) && n < maxQuoteWords; n++ {
		for i := 0; i+n <= len(lowerWords); i++ {
			phrase := strings.Join(lowerWords[i:i+n], " ")
			if !strings.Contains(chunkLower, phrase) {
				continue
			}
			if _, ok := seen[phrase]; ok {
				continue
			}
			seen[phrase] = struct{}{}
			quotes = append(quotes, strings.Join(words[i:i+n], " "))
		}
	}
	return quotes
}

// dedupeQuotes keeps the first-seen casing of each quote, case-insensitively,
// up to limit.
func dedupeQuotes(quotes []string, limit int) []string {
	seen := make(map[string]struct{}, len(quotes))
	var out []string
	for _, q := range quotes {
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
