// Package oplog keeps an append-only JSONL audit trail of evaluation
// operations. Logging is best-effort: a write failure is surfaced through
// the logger, never to the caller's operation.
package oplog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one logged operation.
type Entry struct {
	Operation  string         `json:"operation"`
	Timestamp  time.Time      `json:"timestamp"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Results    map[string]any `json:"results,omitempty"`
}

// Log appends entries to a JSONL file. Safe for concurrent use.
type Log struct {
	Path   string
	Logger *zap.Logger

	mu sync.Mutex
}

func New(path string, logger *zap.Logger) *Log {
	return &Log{Path: path, Logger: logger}
}

// Record writes one entry. The timestamp is set here if unset.
func (l *Log) Record(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.warn("marshal operation entry", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			l.warn("create operations log dir", err)
			return
		}
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.warn("open operations log", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.warn("append operations log", err)
	}
}

// Entries reads back every well-formed entry. Malformed lines are skipped.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// Reset removes the log file. A missing file is not an error.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := os.Remove(l.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Log) warn(msg string, err error) {
	if l.Logger != nil {
		l.Logger.Warn(msg, zap.Error(err))
	}
}
