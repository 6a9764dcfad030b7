package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rageval/pkg/core"
	"rageval/pkg/critique"
	"rageval/pkg/faithfulness"
	"rageval/pkg/qa"
	"rageval/pkg/ranker"
	"rageval/pkg/similarity"
)

// ModelResolver maps a model name to a provider client. The empty name
// resolves to the configured default.
type ModelResolver func(name string) (core.Model, error)

// EmbedderResolver maps an embedding model name to an embedder client. The
// empty name resolves to the configured default.
type EmbedderResolver func(name string) (core.Embedder, error)

// Harness executes a batch experiment over a bounded worker pool. Each run
// is isolated: a panic or provider error marks that run failed and the rest
// of the grid continues.
type Harness struct {
	Store     core.ChunkStore
	Models    ModelResolver
	Embedders EmbedderResolver
	Workers   int
	Limiter   core.RateLimiter
	Logger    *zap.Logger
	Progress  func(completed, total int)

	// Sessions collects critique sessions for the duration of an
	// experiment. Run creates it when the grid carries a critique
	// operation; callers fetch transcripts through the SessionID on each
	// run record and tear the store down when done with them.
	Sessions *critique.Store
}

type job struct {
	runNumber   int
	questionIdx int
	question    string
	operation   Operation
	method      similarity.Method
	embedModel  string
	topK        int
}

// Run executes spec and returns the experiment report. The returned error
// covers setup only; per-run failures are recorded inside the report.
// Cancellation marks unfinished runs failed and leaves completed runs valid.
func (h *Harness) Run(ctx context.Context, spec Spec) (*Report, error) {
	if h.Store == nil || h.Models == nil || h.Embedders == nil {
		return nil, fmt.Errorf("batch: store and resolvers are required")
	}
	if len(spec.Questions) == 0 {
		return nil, core.NewInputError("at least one question is required")
	}
	if len(spec.Operations) == 0 {
		return nil, core.NewInputError("at least one operation is required")
	}
	for _, op := range spec.Operations {
		switch op.Type {
		case OpAsk, OpCompare:
		case OpCritique:
			if h.Sessions == nil {
				h.Sessions = critique.NewStore()
			}
		default:
			return nil, core.NewInputError("unknown operation type %q", op.Type)
		}
	}

	methods := spec.Methods
	if len(methods) == 0 {
		methods = similarity.AllMethods()
	}
	topKValues := spec.TopKValues
	if len(topKValues) == 0 {
		topKValues = []int{5, 7, 10}
	}
	embedModels := spec.EmbeddingModels
	if len(embedModels) == 0 {
		embedModels = []string{""}
	}

	pool, err := h.Store.List(ctx, spec.DocName)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		if spec.DocName != "" {
			return nil, fmt.Errorf("%w: %s", core.ErrNoChunksForDocument, spec.DocName)
		}
		return nil, core.ErrEmptyPool
	}
	detected := detectEmbeddingModel(pool)

	started := time.Now()
	totalRuns := len(spec.Questions) * len(embedModels) * len(methods) * len(topKValues) * len(spec.Operations)

	jobs := make([]job, 0, totalRuns)
	runNumber := 0
	for qIdx, question := range spec.Questions {
		for _, em := range embedModels {
			for _, method := range methods {
				for _, k := range topKValues {
					for _, op := range spec.Operations {
						runNumber++
						jobs = append(jobs, job{
							runNumber:   runNumber,
							questionIdx: qIdx,
							question:    question,
							operation:   op,
							method:      method,
							embedModel:  em,
							topK:        k,
						})
					}
				}
			}
		}
	}

	workers := h.Workers
	if workers <= 0 {
		workers = 1
	}

	runs := make([]Run, totalRuns)
	jobCh := make(chan job)
	var completed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for j := range jobCh {
			select {
			case <-ctx.Done():
				return
			default:
			}
			run := h.executeRun(ctx, j, pool, spec, detected, totalRuns)
			runs[j.runNumber-1] = run

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if h.Progress != nil {
				h.Progress(done, totalRuns)
			}
			if h.Logger != nil {
				h.Logger.Debug("run finished",
					zap.Int("run", j.runNumber),
					zap.Int("total", totalRuns),
					zap.String("status", run.Status))
			}
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

feed:
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()

	// Anything the workers never reached is recorded as failed so the
	// report's totals stay consistent under cancellation.
	for i := range runs {
		if runs[i].Status == "" {
			runs[i] = Run{
				RunNumber:   jobs[i].runNumber,
				TotalRuns:   totalRuns,
				QuestionIdx: jobs[i].questionIdx,
				Question:    jobs[i].question,
				Status:      "failed",
				Error:       "run canceled",
				Config:      jobConfig(jobs[i], spec, detected),
			}
		}
	}

	ended := time.Now()
	report := &Report{
		Metadata: Metadata{
			ExperimentID:    uuid.NewString(),
			StartTime:       started.UTC(),
			EndTime:         ended.UTC(),
			DurationSeconds: ended.Sub(started).Seconds(),
			TotalRuns:       totalRuns,
			QuestionCount:   len(spec.Questions),
			Configurations: Configurations{
				SimilarityMethods: methods,
				EmbeddingModels:   usedEmbeddingModels(runs),
				TopKValues:        topKValues,
				Operations:        operationTypes(spec.Operations),
			},
		},
		Runs: runs,
	}
	for _, run := range runs {
		if run.Status == "failed" {
			report.Metadata.FailedRuns++
		} else {
			report.Metadata.SuccessfulRuns++
		}
	}
	report.Summary = summarize(runs)
	return report, nil
}

// executeRun evaluates one grid cell. It never panics out: a panic inside a
// run becomes a failed record.
func (h *Harness) executeRun(ctx context.Context, j job, pool []core.ChunkRecord, spec Spec, detected string, totalRuns int) (run Run) {
	run = Run{
		RunNumber:   j.runNumber,
		TotalRuns:   totalRuns,
		QuestionIdx: j.questionIdx,
		Question:    j.question,
		Status:      "success",
		Config:      jobConfig(j, spec, detected),
	}

	defer func() {
		if r := recover(); r != nil {
			run.Status = "failed"
			run.Error = fmt.Sprintf("panic: %v", r)
			if h.Logger != nil {
				h.Logger.Error("run panicked", zap.Int("run", j.runNumber), zap.Any("panic", r))
			}
		}
	}()

	fail := func(err error) Run {
		run.Status = "failed"
		run.Error = err.Error()
		return run
	}

	start := time.Now()

	embedder, err := h.Embedders(j.embedModel)
	if err != nil {
		return fail(err)
	}

	if err := h.wait(ctx); err != nil {
		return fail(err)
	}
	queryVec, err := embedder.EmbedQuery(ctx, j.question)
	if err != nil {
		return fail(err)
	}

	ranked, err := ranker.Rank(pool, queryVec, j.question, ranker.Options{
		K:         j.topK,
		Methods:   []similarity.Method{j.method},
		Normalize: spec.Normalize,
	})
	if err != nil {
		return fail(err)
	}
	chunks := ranked.ByMethod[j.method]
	run.Sources = chunks

	opts := core.GenerateOptions{Temperature: spec.Temperature}

	switch j.operation.Type {
	case OpAsk:
		model, err := h.Models(j.operation.Model)
		if err != nil {
			return fail(err)
		}
		if err := h.wait(ctx); err != nil {
			return fail(err)
		}
		resp, err := qa.Answerer{Model: model, Options: opts}.Answer(ctx, j.question, chunks)
		if err != nil {
			return fail(err)
		}
		run.Answer = resp.Content
		run.Metrics = h.metrics(ctx, embedder, resp.Content, chunks, j.question, spec.IncludeFaithfulness)

	case OpCompare:
		names := compareModels(j.operation.Models)
		answers := make([]string, 2)
		for i := 0; i < 2; i++ {
			model, err := h.Models(names[i])
			if err != nil {
				return fail(err)
			}
			if err := h.wait(ctx); err != nil {
				return fail(err)
			}
			resp, err := qa.Answerer{Model: model, Options: opts}.Answer(ctx, j.question, chunks)
			if err != nil {
				return fail(err)
			}
			answers[i] = resp.Content
		}
		run.Answer = answers[0]
		run.SecondAnswer = answers[1]
		run.Metrics = h.metrics(ctx, embedder, answers[0], chunks, j.question, spec.IncludeFaithfulness)
		second := h.metrics(ctx, embedder, answers[1], chunks, j.question, spec.IncludeFaithfulness)
		second.LatencySeconds = 0
		run.SecondMetrics = &second

	case OpCritique:
		answerModel, err := h.Models(j.operation.AnswerModel)
		if err != nil {
			return fail(err)
		}
		criticModel, err := h.Models(j.operation.CriticModel)
		if err != nil {
			return fail(err)
		}
		if err := h.wait(ctx); err != nil {
			return fail(err)
		}
		controller := critique.Controller{AnswerModel: answerModel, CriticModel: criticModel, Options: opts}
		session, err := controller.Run(ctx, j.question, chunks, j.operation.SelfCorrect)
		if err != nil {
			return fail(err)
		}
		run.Answer = session.Answer()
		run.CritiqueRounds = len(session.Rounds)
		run.SessionID = session.ID
		h.Sessions.Put(session)
		run.Metrics = h.metrics(ctx, embedder, run.Answer, chunks, j.question, spec.IncludeFaithfulness)
	}

	run.Metrics.LatencySeconds = time.Since(start).Seconds()
	return run
}

func (h *Harness) wait(ctx context.Context) error {
	if h.Limiter == nil {
		return nil
	}
	return h.Limiter.Wait(ctx)
}

func (h *Harness) metrics(ctx context.Context, embedder core.Embedder, answer string, chunks []core.ScoredChunk, question string, includeFaithfulness bool) RunMetrics {
	m := RunMetrics{
		AnswerLength:    len(answer),
		AnswerWordCount: len(strings.Fields(answer)),
		ChunksRetrieved: len(chunks),
	}
	if includeFaithfulness {
		report := faithfulness.NewScorer(embedder).Score(ctx, answer, chunks, question)
		m.Faithfulness = &report
	}
	return m
}

func jobConfig(j job, spec Spec, detected string) RunConfig {
	cfg := RunConfig{
		Operation:        j.operation.Type,
		SimilarityMethod: j.method,
		EmbeddingModel:   j.embedModel,
		TopK:             j.topK,
		Normalize:        spec.Normalize,
		Temperature:      spec.Temperature,
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = detected
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "default"
	}
	switch j.operation.Type {
	case OpAsk:
		cfg.Model = orDefault(j.operation.Model)
	case OpCompare:
		models := compareModels(j.operation.Models)
		cfg.Models = []string{orDefault(models[0]), orDefault(models[1])}
	case OpCritique:
		cfg.AnswerModel = orDefault(j.operation.AnswerModel)
		cfg.CriticModel = orDefault(j.operation.CriticModel)
		cfg.SelfCorrect = j.operation.SelfCorrect
	}
	return cfg
}

// compareModels pads a compare operation's model list to exactly two names.
// A single named model compares against the configured default; the empty
// name resolves through the model resolver.
func compareModels(names []string) []string {
	switch len(names) {
	case 0:
		return []string{"", ""}
	case 1:
		return []string{names[0], ""}
	}
	return names[:2]
}

func orDefault(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

// detectEmbeddingModel picks the most common embedding model across the
// pool, matching how retrieval chooses a query embedder when none is named.
func detectEmbeddingModel(pool []core.ChunkRecord) string {
	counts := make(map[string]int)
	for _, chunk := range pool {
		if chunk.EmbeddingModel != "" {
			counts[chunk.EmbeddingModel]++
		}
	}
	var best string
	var bestCount int
	for model, count := range counts {
		if count > bestCount || (count == bestCount && model < best) {
			best = model
			bestCount = count
		}
	}
	return best
}

func usedEmbeddingModels(runs []Run) []string {
	seen := make(map[string]struct{})
	var models []string
	for _, run := range runs {
		if run.Status != "success" {
			continue
		}
		model := run.Config.EmbeddingModel
		if model == "" || model == "default" {
			continue
		}
		if _, ok := seen[model]; !ok {
			seen[model] = struct{}{}
			models = append(models, model)
		}
	}
	if len(models) == 0 {
		return []string{"auto-detected"}
	}
	return models
}

func operationTypes(ops []Operation) []string {
	types := make([]string, len(ops))
	for i, op := range ops {
		types[i] = op.Type
	}
	return types
}
