package faithfulness

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTags     = regexp.MustCompile(`<[^>]+>`)
	boldItalic   = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	mdHeaders    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	tableSep     = regexp.MustCompile(`\|[-:\s]+\|`)
	leadingPipe  = regexp.MustCompile(`(?m)^\|`)
	trailingPipe = regexp.MustCompile(`(?m)\|$`)
	multiSpace   = regexp.MustCompile(`\s+`)
	bareNumber   = regexp.MustCompile(`^\d+\.?$`)
	purePunct    = regexp.MustCompile(`^[^\w\s]+$`)
)

// CleanText strips HTML tags, markdown emphasis and headers, and table
// separators so segmentation sees prose only.
func CleanText(text string) string {
	text = htmlTags.ReplaceAllString(text, " ")
	text = boldItalic.ReplaceAllString(text, "$1")
	text = mdHeaders.ReplaceAllString(text, "")
	text = tableSep.ReplaceAllString(text, " ")
	text = leadingPipe.ReplaceAllString(text, "")
	text = trailingPipe.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitSentences cleans text and splits it on sentence-ending punctuation
// followed by whitespace, except when the punctuation follows a digit (so
// list markers like "1." never break a sentence). Fragments under 3
// characters, bare numbers, and pure punctuation are dropped.
func SplitSentences(text string) []string {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil
	}

	runes := []rune(cleaned)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i > 0 && unicode.IsDigit(runes[i-1]) {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		// Skip the whitespace run after the boundary.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	filtered := sentences[:0]
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) < 3 {
			continue
		}
		if bareNumber.MatchString(s) {
			continue
		}
		if purePunct.MatchString(s) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
