// Package batch runs controlled experiments across questions, similarity
// methods, embedding models, top-k values, and operations, and aggregates
// the results into a single report.
package batch

import (
	"time"

	"rageval/pkg/core"
	"rageval/pkg/faithfulness"
	"rageval/pkg/similarity"
)

// Operation types.
const (
	OpAsk      = "ask"
	OpCompare  = "compare"
	OpCritique = "critique"
)

// Operation configures one operation axis of the experiment grid.
type Operation struct {
	Type        string   `json:"type"`
	Model       string   `json:"model,omitempty"`
	Models      []string `json:"models,omitempty"`
	AnswerModel string   `json:"answer_model,omitempty"`
	CriticModel string   `json:"critic_model,omitempty"`
	SelfCorrect bool     `json:"self_correct,omitempty"`
}

// Spec describes a batch experiment. Zero-valued axes fall back to defaults:
// all similarity methods, top-k values 5/7/10, and the embedding model
// auto-detected from the chunk pool.
type Spec struct {
	Questions           []string            `json:"questions"`
	Operations          []Operation         `json:"operations"`
	Methods             []similarity.Method `json:"similarity_methods,omitempty"`
	EmbeddingModels     []string            `json:"embedding_models,omitempty"`
	TopKValues          []int               `json:"top_k_values,omitempty"`
	DocName             string              `json:"doc_name,omitempty"`
	Normalize           bool                `json:"normalize_vectors"`
	Temperature         float32             `json:"temperature,omitempty"`
	IncludeFaithfulness bool                `json:"include_faithfulness"`
}

// RunConfig records the exact configuration a run executed under.
type RunConfig struct {
	Operation        string            `json:"operation"`
	SimilarityMethod similarity.Method `json:"similarity_method"`
	EmbeddingModel   string            `json:"embedding_model"`
	TopK             int               `json:"top_k"`
	Normalize        bool              `json:"normalize_vectors"`
	Temperature      float32           `json:"temperature"`
	Model            string            `json:"model,omitempty"`
	Models           []string          `json:"models,omitempty"`
	AnswerModel      string            `json:"answer_model,omitempty"`
	CriticModel      string            `json:"critic_model,omitempty"`
	SelfCorrect      bool              `json:"self_correct,omitempty"`
}

// RunMetrics are the per-answer measurements of one run.
type RunMetrics struct {
	AnswerLength    int                  `json:"answer_length"`
	AnswerWordCount int                  `json:"answer_word_count"`
	ChunksRetrieved int                  `json:"chunks_retrieved"`
	LatencySeconds  float64              `json:"latency_seconds"`
	Faithfulness    *faithfulness.Report `json:"faithfulness,omitempty"`
}

// Run is one cell of the experiment grid. A failed run carries only the
// identifying fields plus Error; it never aborts the experiment.
type Run struct {
	RunNumber   int               `json:"run_number"`
	TotalRuns   int               `json:"total_runs"`
	QuestionIdx int               `json:"question_idx"`
	Question    string            `json:"question"`
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Config      RunConfig         `json:"configuration"`
	Answer      string            `json:"answer,omitempty"`
	// SecondAnswer and SecondMetrics are set for compare operations only.
	SecondAnswer   string            `json:"second_answer,omitempty"`
	CritiqueRounds int               `json:"critique_rounds,omitempty"`
	SessionID      string            `json:"session_id,omitempty"`
	Sources        []core.ScoredChunk `json:"sources,omitempty"`
	Metrics        RunMetrics        `json:"metrics"`
	SecondMetrics  *RunMetrics       `json:"second_metrics,omitempty"`
}

// Configurations echoes the experiment axes back into the metadata.
type Configurations struct {
	SimilarityMethods []similarity.Method `json:"similarity_methods"`
	EmbeddingModels   []string            `json:"embedding_models"`
	TopKValues        []int               `json:"top_k_values"`
	Operations        []string            `json:"operations"`
}

// Metadata identifies and sizes an experiment.
type Metadata struct {
	ExperimentID    string         `json:"experiment_id"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	DurationSeconds float64        `json:"duration_seconds"`
	TotalRuns       int            `json:"total_runs"`
	SuccessfulRuns  int            `json:"successful_runs"`
	FailedRuns      int            `json:"failed_runs"`
	QuestionCount   int            `json:"questions_count"`
	Configurations  Configurations `json:"configurations"`
}

// GroupStats summarizes one slice of the grid.
type GroupStats struct {
	Count           int     `json:"count"`
	AvgLatency      float64 `json:"avg_latency"`
	AvgAnswerLength float64 `json:"avg_answer_length"`
}

// FaithfulnessSummary averages faithfulness metrics over successful runs.
type FaithfulnessSummary struct {
	AvgHallucinationRisk float64 `json:"avg_hallucination_risk"`
	AvgEvidenceCoverage  float64 `json:"avg_evidence_coverage"`
	AvgCitationCoverage  float64 `json:"avg_citation_coverage"`
}

// Overall holds grid-wide averages over successful runs.
type Overall struct {
	AvgLatencySeconds  float64 `json:"avg_latency_seconds"`
	AvgAnswerLength    float64 `json:"avg_answer_length"`
	AvgChunksRetrieved float64 `json:"avg_chunks_retrieved"`
}

// Summary aggregates successful runs overall and by configuration group.
type Summary struct {
	Overall      Overall                             `json:"overall"`
	Faithfulness *FaithfulnessSummary                `json:"faithfulness,omitempty"`
	ByMethod     map[similarity.Method]GroupStats    `json:"by_similarity_method"`
	ByTopK       map[int]GroupStats                  `json:"by_top_k"`
}

// Report is the complete outcome of one batch experiment.
type Report struct {
	Metadata Metadata `json:"experiment_metadata"`
	Runs     []Run    `json:"results"`
	Summary  Summary  `json:"summary"`
}
