// Package cache keeps model completions on disk so repeated experiment runs
// never pay for an identical request twice. Entries are gzip JSON files laid
// out per model and keyed by a digest of the full request; they expire by
// TTL.
package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rageval/pkg/core"
)

const defaultTTL = 7 * 24 * time.Hour

type Cache struct {
	Dir string
	TTL time.Duration
}

// New opens (or creates) a cache rooted at dir and sweeps entries that have
// outlived the TTL. An empty dir defaults to ~/.rageval/cache.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".rageval", "cache")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	c := &Cache{Dir: dir, TTL: ttl}
	_, _ = c.Prune()
	return c, nil
}

// request is the canonical form of everything that makes a completion
// unique. The digest of its JSON encoding names the entry file.
type request struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	SystemPrompt  string   `json:"system_prompt"`
	Temperature   float32  `json:"temperature"`
	Deterministic bool     `json:"deterministic"`
	MaxTokens     int      `json:"max_tokens"`
	TopP          float32  `json:"top_p"`
	Stop          []string `json:"stop,omitempty"`
}

type entry struct {
	Model    string        `json:"model"`
	CachedAt time.Time     `json:"cached_at"`
	Response core.Response `json:"response"`
}

func digest(modelName, prompt string, opts core.GenerateOptions) string {
	payload, _ := json.Marshal(request{
		Model:         modelName,
		Prompt:        prompt,
		SystemPrompt:  opts.SystemPrompt,
		Temperature:   opts.Temperature,
		Deterministic: opts.Deterministic,
		MaxTokens:     opts.MaxTokens,
		TopP:          opts.TopP,
		Stop:          opts.Stop,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// modelDir flattens a model name into a directory segment. Provider ids can
// carry slashes (meta-llama/llama-guard-4-12b), which must not split paths.
func modelDir(name string) string {
	if name == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return defaultTTL
	}
	return c.TTL
}

func (c *Cache) entryPath(modelName, prompt string, opts core.GenerateOptions) string {
	return filepath.Join(c.Dir, modelDir(modelName), digest(modelName, prompt, opts)+".json.gz")
}

func (c *Cache) Get(modelName, prompt string, opts core.GenerateOptions) (core.Response, bool) {
	p := c.entryPath(modelName, prompt, opts)
	f, err := os.Open(p)
	if err != nil {
		return core.Response{}, false
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return core.Response{}, false
	}
	defer gz.Close()

	var e entry
	if err := json.NewDecoder(gz).Decode(&e); err != nil {
		return core.Response{}, false
	}
	if time.Since(e.CachedAt) > c.ttl() {
		_ = os.Remove(p)
		return core.Response{}, false
	}
	return e.Response, true
}

// Set writes through a temp file and renames so readers never see a partial
// entry.
func (c *Cache) Set(modelName, prompt string, opts core.GenerateOptions, resp core.Response) error {
	p := c.entryPath(modelName, prompt, opts)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*.json.gz")
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)
	err = json.NewEncoder(gz).Encode(entry{
		Model:    modelName,
		CachedAt: time.Now(),
		Response: resp,
	})
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), p)
	}
	if err != nil {
		os.Remove(f.Name())
	}
	return err
}

// Prune deletes entries older than the TTL and returns how many were
// removed. Age comes from the file mtime, which Set controls through the
// rename, so entries never need decoding here.
func (c *Cache) Prune() (int, error) {
	cutoff := time.Now().Add(-c.ttl())
	removed := 0
	err := filepath.WalkDir(c.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json.gz") {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
