// Package questions loads question sets for batch experiments from JSON
// arrays, JSONL, or plain text files.
package questions

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a question set from path. Format is chosen by extension, with a
// first-byte sniff for unknown extensions: .json holds an array of strings
// (or objects with a "question" field), .jsonl one such value per line, and
// anything else one question per non-empty line with '#' comments ignored.
func Load(path string) ([]string, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case "json":
		return loadJSON(path)
	case "jsonl":
		return loadJSONL(path)
	case "text":
		return loadText(path)
	}
	return nil, errors.New("questions: unsupported format")
}

func detectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".jsonl":
		return "jsonl", nil
	case ".txt":
		return "text", nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return "text", nil
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		switch b {
		case '[':
			return "json", nil
		case '{', '"':
			return "jsonl", nil
		}
		return "text", nil
	}
}

// entry accepts either a bare string or an object with a question field.
type entry struct {
	Question string `json:"question"`
}

func decodeEntry(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", err
	}
	if e.Question == "" {
		return "", errors.New("questions: object has no question field")
	}
	return e.Question, nil
}

func loadJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("questions: parse %s: %w", path, err)
	}
	questions := make([]string, 0, len(raw))
	for i, item := range raw {
		q, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("questions: entry %d in %s: %w", i, path, err)
		}
		if strings.TrimSpace(q) == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func loadJSONL(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var questions []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		q, err := decodeEntry(json.RawMessage(text))
		if err != nil {
			return nil, fmt.Errorf("questions: line %d in %s: %w", line, path, err)
		}
		if strings.TrimSpace(q) == "" {
			continue
		}
		questions = append(questions, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

func loadText(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var questions []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		questions = append(questions, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

// Sample returns a built-in question set for smoke-testing a corpus, capped
// at count.
func Sample(count int) []string {
	sample := []string{
		"What are the main findings discussed in the document?",
		"Can you summarize the key points?",
		"What methodology was used in this study?",
		"What are the limitations mentioned?",
		"What are the recommendations or conclusions?",
		"How does this relate to previous research?",
		"What are the implications of these findings?",
		"What future work is suggested?",
		"What data sources were used?",
		"What are the key definitions or concepts?",
		"What evidence supports the main argument?",
		"Are there any contradictions or disagreements?",
		"What quantitative results are reported?",
		"What qualitative insights are provided?",
		"What are the practical applications?",
		"What are the theoretical contributions?",
		"How was the data analyzed?",
		"What are the ethical considerations?",
		"What are the strengths of this approach?",
		"What areas need further investigation?",
	}
	if count <= 0 || count > len(sample) {
		count = len(sample)
	}
	return sample[:count]
}
