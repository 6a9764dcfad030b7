package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rageval/pkg/chunkstore"
	"rageval/pkg/core"
	"rageval/pkg/oplog"
	"rageval/pkg/ranker"
	"rageval/pkg/similarity"
)

func openStore(path string) (*chunkstore.Store, error) {
	if path == "" {
		path = appConfig.StorePath
	}
	if path == "" {
		path = "data/vector_store.jsonl"
	}
	return chunkstore.New(path), nil
}

func openOpLog() *oplog.Log {
	path := appConfig.OpLogPath
	if path == "" {
		path = "data/operations_log.jsonl"
	}
	return oplog.New(path, logger)
}

// retrieve embeds the question and ranks the pool under a single method.
func retrieve(ctx context.Context, embedder core.Embedder, store *chunkstore.Store, question, docName string, method similarity.Method, topK int, normalize bool) ([]core.ScoredChunk, *ranker.Result, error) {
	pool, err := store.List(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	queryVec, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, nil, err
	}
	result, err := ranker.Rank(pool, queryVec, question, ranker.Options{
		K:         topK,
		Methods:   []similarity.Method{method},
		DocName:   docName,
		Normalize: normalize,
	})
	if err != nil {
		return nil, nil, err
	}
	return result.ByMethod[method], result, nil
}

func resolveMethod(name string) (similarity.Method, error) {
	if name == "" {
		name = appConfig.Similarity
	}
	if name == "" {
		name = string(similarity.Cosine)
	}
	return similarity.ParseMethod(name)
}

func resolveTopK(value int) int {
	if value > 0 {
		return value
	}
	if appConfig.TopK > 0 {
		return appConfig.TopK
	}
	return 5
}

func outputWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		path = appConfig.Output
	}
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func resolveString(value string, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func resolveInt(value int, fallback int, defaultValue int) int {
	if value > 0 {
		return value
	}
	if fallback > 0 {
		return fallback
	}
	return defaultValue
}

func requireQuestion(args []string) (string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", fmt.Errorf("a question argument is required")
	}
	return args[0], nil
}
