package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
	"rageval/pkg/embed"
	"rageval/pkg/model"
	"rageval/pkg/similarity"
)

// memStore is an in-memory core.ChunkStore for harness tests.
type memStore struct {
	chunks []core.ChunkRecord
}

func (s memStore) List(_ context.Context, docName string) ([]core.ChunkRecord, error) {
	if docName == "" {
		return s.chunks, nil
	}
	var out []core.ChunkRecord
	for _, c := range s.chunks {
		if c.DocName == docName {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s memStore) Documents(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var docs []string
	for _, c := range s.chunks {
		if _, ok := seen[c.DocName]; !ok {
			seen[c.DocName] = struct{}{}
			docs = append(docs, c.DocName)
		}
	}
	return docs, nil
}

func testStore() memStore {
	return memStore{chunks: []core.ChunkRecord{
		{DocName: "a.txt", Text: "alpha text about treaties", Embedding: []float64{1, 0}, EmbeddingModel: "test-embed"},
		{DocName: "a.txt", Text: "beta text about borders", Embedding: []float64{0.9, 0.1}, EmbeddingModel: "test-embed"},
		{DocName: "b.txt", Text: "gamma text about rivers", Embedding: []float64{0, 1}, EmbeddingModel: "test-embed"},
	}}
}

func testHarness(m core.Model) *Harness {
	return &Harness{
		Store: testStore(),
		Models: func(string) (core.Model, error) {
			return m, nil
		},
		Embedders: func(string) (core.Embedder, error) {
			return embed.MockEmbedder{Dim: 2}, nil
		},
		Workers: 2,
	}
}

func TestRunGridCardinality(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: "an answer"})
	spec := Spec{
		Questions:  []string{"q1", "q2"},
		Operations: []Operation{{Type: OpAsk}},
		Methods:    []similarity.Method{similarity.Cosine, similarity.Dot},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	// 2 questions x 1 embedding model x 2 methods x 1 top-k x 1 operation.
	require.Equal(t, 4, report.Metadata.TotalRuns)
	require.Len(t, report.Runs, 4)
	require.Equal(t, 4, report.Metadata.SuccessfulRuns)
	require.Equal(t, 0, report.Metadata.FailedRuns)
	require.NotEmpty(t, report.Metadata.ExperimentID)
	require.Equal(t, 2, report.Metadata.QuestionCount)

	// Run numbers are stable regardless of worker scheduling.
	for i, run := range report.Runs {
		require.Equal(t, i+1, run.RunNumber)
		require.Equal(t, 4, run.TotalRuns)
		require.Equal(t, "success", run.Status)
		require.Equal(t, "an answer", run.Answer)
		require.Equal(t, 2, run.Metrics.ChunksRetrieved)
	}

	// The nested-loop order puts both methods of q1 before q2.
	require.Equal(t, "q1", report.Runs[0].Question)
	require.Equal(t, "q1", report.Runs[1].Question)
	require.Equal(t, "q2", report.Runs[2].Question)
	require.Equal(t, similarity.Cosine, report.Runs[0].Config.SimilarityMethod)
	require.Equal(t, similarity.Dot, report.Runs[1].Config.SimilarityMethod)
}

func TestRunDefaultsAxes(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: "ok"})
	spec := Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpAsk}},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	// All methods x default top-k values 5/7/10.
	require.Equal(t, len(similarity.AllMethods())*3, report.Metadata.TotalRuns)
	require.Equal(t, []int{5, 7, 10}, report.Metadata.Configurations.TopKValues)
}

func TestRunFailureIsolation(t *testing.T) {
	broken := &model.MockModel{Err: errors.New("provider down")}
	h := testHarness(broken)
	// One of the two embedding models cannot be resolved either.
	good := &model.MockModel{ResponseText: "fine"}
	h.Models = func(name string) (core.Model, error) {
		if name == "broken" {
			return broken, nil
		}
		return good, nil
	}

	spec := Spec{
		Questions: []string{"q"},
		Operations: []Operation{
			{Type: OpAsk, Model: "good"},
			{Type: OpAsk, Model: "broken"},
		},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	require.Equal(t, 2, report.Metadata.TotalRuns)
	require.Equal(t, 1, report.Metadata.SuccessfulRuns)
	require.Equal(t, 1, report.Metadata.FailedRuns)
	require.Equal(t, report.Metadata.TotalRuns,
		report.Metadata.SuccessfulRuns+report.Metadata.FailedRuns)

	require.Equal(t, "success", report.Runs[0].Status)
	require.Equal(t, "failed", report.Runs[1].Status)
	require.Contains(t, report.Runs[1].Error, "provider down")

	// Failed runs never contribute to the summary.
	require.Equal(t, 1, report.Summary.ByMethod[similarity.Cosine].Count)
}

func TestRunCompareOperation(t *testing.T) {
	h := testHarness(nil)
	first := &model.MockModel{NameValue: "m1", ResponseText: "first answer"}
	second := &model.MockModel{NameValue: "m2", ResponseText: "second answer"}
	h.Models = func(name string) (core.Model, error) {
		if name == "m2" {
			return second, nil
		}
		return first, nil
	}

	spec := Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpCompare, Models: []string{"m1", "m2"}}},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	run := report.Runs[0]
	require.Equal(t, "first answer", run.Answer)
	require.Equal(t, "second answer", run.SecondAnswer)
	require.NotNil(t, run.SecondMetrics)
	require.Equal(t, []string{"m1", "m2"}, run.Config.Models)
}

func TestRunCritiqueOperation(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: `{"scores": {"correctness": 7}, "critique_markdown": "fine"}`})

	spec := Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpCritique, SelfCorrect: true}},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	run := report.Runs[0]
	require.Equal(t, "success", run.Status)
	require.Equal(t, 2, run.CritiqueRounds)
	require.NotEmpty(t, run.SessionID)
	require.True(t, run.Config.SelfCorrect)

	// The full transcript is retrievable through the session store until
	// the caller tears it down.
	require.NotNil(t, h.Sessions)
	session, err := h.Sessions.Get(run.SessionID)
	require.NoError(t, err)
	require.Len(t, session.Rounds, run.CritiqueRounds)
	require.Equal(t, run.Answer, session.Answer())

	h.Sessions.Delete(run.SessionID)
	_, err = h.Sessions.Get(run.SessionID)
	require.Error(t, err)
}

func TestRunCompareSingleNamedModel(t *testing.T) {
	h := testHarness(nil)
	named := &model.MockModel{NameValue: "m1", ResponseText: "named answer"}
	fallback := &model.MockModel{NameValue: "house-default", ResponseText: "default answer"}
	h.Models = func(name string) (core.Model, error) {
		if name == "m1" {
			return named, nil
		}
		return fallback, nil
	}

	spec := Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpCompare, Models: []string{"m1"}}},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	run := report.Runs[0]
	require.Equal(t, "success", run.Status)
	require.Equal(t, "named answer", run.Answer)
	require.Equal(t, "default answer", run.SecondAnswer)
	require.Equal(t, []string{"m1", "default"}, run.Config.Models)
}

func TestRunFaithfulnessMetrics(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: "alpha text about treaties."})
	spec := Spec{
		Questions:           []string{"q"},
		Operations:          []Operation{{Type: OpAsk}},
		Methods:             []similarity.Method{similarity.Cosine},
		TopKValues:          []int{3},
		IncludeFaithfulness: true,
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)

	require.NotNil(t, report.Runs[0].Metrics.Faithfulness)
	require.NotNil(t, report.Summary.Faithfulness)
}

func TestRunEmbeddingModelDetection(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: "ok"})
	spec := Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpAsk}},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}

	report, err := h.Run(context.Background(), spec)
	require.NoError(t, err)
	// No embedding model named: the pool's dominant model is echoed back.
	require.Equal(t, "test-embed", report.Runs[0].Config.EmbeddingModel)
}

func TestRunValidation(t *testing.T) {
	h := testHarness(&model.MockModel{})

	_, err := h.Run(context.Background(), Spec{Operations: []Operation{{Type: OpAsk}}})
	require.True(t, core.IsInputError(err))

	_, err = h.Run(context.Background(), Spec{Questions: []string{"q"}})
	require.True(t, core.IsInputError(err))

	_, err = h.Run(context.Background(), Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: "summarize"}},
	})
	require.True(t, core.IsInputError(err))

	_, err = h.Run(context.Background(), Spec{
		Questions:  []string{"q"},
		Operations: []Operation{{Type: OpAsk}},
		DocName:    "missing.txt",
	})
	require.ErrorIs(t, err, core.ErrNoChunksForDocument)
}

func TestRunProgressCallback(t *testing.T) {
	h := testHarness(&model.MockModel{ResponseText: "ok"})
	var calls int
	var lastTotal int
	h.Progress = func(completed, total int) {
		calls++
		lastTotal = total
	}

	spec := Spec{
		Questions:  []string{"q1", "q2"},
		Operations: []Operation{{Type: OpAsk}},
		Methods:    []similarity.Method{similarity.Cosine},
		TopKValues: []int{2},
	}
	h.Workers = 1

	_, err := h.Run(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 2, lastTotal)
}

func TestSummarizeGroups(t *testing.T) {
	runs := []Run{
		{
			Status: "success",
			Config: RunConfig{SimilarityMethod: similarity.Cosine, TopK: 5},
			Metrics: RunMetrics{AnswerLength: 100, ChunksRetrieved: 5, LatencySeconds: 1.0},
		},
		{
			Status: "success",
			Config: RunConfig{SimilarityMethod: similarity.Dot, TopK: 5},
			Metrics: RunMetrics{AnswerLength: 200, ChunksRetrieved: 5, LatencySeconds: 3.0},
		},
		{Status: "failed", Config: RunConfig{SimilarityMethod: similarity.Cosine, TopK: 5}},
	}

	summary := summarize(runs)

	require.Equal(t, 2.0, summary.Overall.AvgLatencySeconds)
	require.Equal(t, 150.0, summary.Overall.AvgAnswerLength)
	require.Equal(t, 5.0, summary.Overall.AvgChunksRetrieved)

	require.Equal(t, 1, summary.ByMethod[similarity.Cosine].Count)
	require.Equal(t, 1, summary.ByMethod[similarity.Dot].Count)
	require.Equal(t, 2, summary.ByTopK[5].Count)
	require.Nil(t, summary.Faithfulness)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := summarize([]Run{{Status: "failed"}})
	require.Equal(t, 0.0, summary.Overall.AvgLatencySeconds)
	require.Empty(t, summary.ByMethod)
}
