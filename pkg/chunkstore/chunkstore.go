// Package chunkstore reads and writes the JSONL-backed chunk pool. Each line
// is one ChunkRecord; malformed lines are skipped rather than failing a read.
package chunkstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"rageval/pkg/core"
)

const maxLineBytes = 16 * 1024 * 1024

// Store is a JSONL chunk store at a fixed path. The evaluation engine treats
// it as read-only; Add and Clear exist for fixtures and tooling.
type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// List returns the chunks for docName, or every chunk when docName is empty.
func (s *Store) List(ctx context.Context, docName string) ([]core.ChunkRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chunkstore: open %s: %w", s.Path, err)
	}
	defer f.Close()

	var records []core.ChunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record core.ChunkRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		if docName != "" && record.DocName != docName {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("chunkstore: read %s: %w", s.Path, err)
	}
	return records, nil
}

// Documents lists distinct document names in sorted order.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	records, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var docs []string
	for _, record := range records {
		if _, ok := seen[record.DocName]; !ok {
			seen[record.DocName] = struct{}{}
			docs = append(docs, record.DocName)
		}
	}
	sort.Strings(docs)
	return docs, nil
}

// DocumentEmbeddings returns the mean chunk embedding per document. Documents
// whose chunks carry no embeddings are omitted.
func (s *Store) DocumentEmbeddings(ctx context.Context) (map[string][]float64, error) {
	records, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	for _, record := range records {
		if len(record.Embedding) == 0 {
			continue
		}
		sum := sums[record.DocName]
		if sum == nil {
			sum = make([]float64, len(record.Embedding))
			sums[record.DocName] = sum
		}
		if len(sum) != len(record.Embedding) {
			continue
		}
		for i, v := range record.Embedding {
			sum[i] += v
		}
		counts[record.DocName]++
	}

	means := make(map[string][]float64, len(sums))
	for doc, sum := range sums {
		n := float64(counts[doc])
		mean := make([]float64, len(sum))
		for i, v := range sum {
			mean[i] = v / n
		}
		means[doc] = mean
	}
	return means, nil
}

// DocumentText concatenates a document's chunk texts up to maxChars.
// maxChars <= 0 means no limit.
func (s *Store) DocumentText(ctx context.Context, docName string, maxChars int) (string, error) {
	records, err := s.List(ctx, docName)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: %s", core.ErrNoChunksForDocument, docName)
	}
	var text string
	for i, record := range records {
		if i > 0 {
			text += "\n"
		}
		text += record.Text
		if maxChars > 0 && len(text) >= maxChars {
			return text[:maxChars], nil
		}
	}
	return text, nil
}

// Add appends records to the store, creating the file and parent directory
// as needed.
func (s *Store) Add(records []core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("chunkstore: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("chunkstore: open %s: %w", s.Path, err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	encoder := json.NewEncoder(writer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("chunkstore: encode record: %w", err)
		}
	}
	return writer.Flush()
}

// Clear removes the store file. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunkstore: remove %s: %w", s.Path, err)
	}
	return nil
}

var _ core.ChunkStore = (*Store)(nil)
