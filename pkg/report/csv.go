package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"rageval/pkg/batch"
)

type CSVReporter struct {
	Writer io.Writer
}

// Report writes one flattened row per successful run. Failed runs are
// skipped; the JSON export carries them.
func (r CSVReporter) Report(report *batch.Report) error {
	writer := csv.NewWriter(r.Writer)
	header := []string{
		"run_number",
		"question_idx",
		"question",
		"operation",
		"similarity_method",
		"embedding_model",
		"top_k",
		"model",
		"temperature",
		"answer_length",
		"answer_word_count",
		"chunks_retrieved",
		"latency_seconds",
		"hallucination_risk",
		"evidence_coverage",
		"answer",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, run := range report.Runs {
		if run.Status != "success" {
			continue
		}
		var risk, coverage string
		if run.Metrics.Faithfulness != nil {
			risk = strconv.FormatFloat(run.Metrics.Faithfulness.HallucinationRisk, 'f', 3, 64)
			coverage = strconv.FormatFloat(run.Metrics.Faithfulness.EvidenceCoverage, 'f', 3, 64)
		}
		record := []string{
			strconv.Itoa(run.RunNumber),
			strconv.Itoa(run.QuestionIdx),
			run.Question,
			run.Config.Operation,
			string(run.Config.SimilarityMethod),
			run.Config.EmbeddingModel,
			strconv.Itoa(run.Config.TopK),
			modelColumn(run.Config),
			strconv.FormatFloat(float64(run.Config.Temperature), 'f', 2, 32),
			strconv.Itoa(run.Metrics.AnswerLength),
			strconv.Itoa(run.Metrics.AnswerWordCount),
			strconv.Itoa(run.Metrics.ChunksRetrieved),
			strconv.FormatFloat(run.Metrics.LatencySeconds, 'f', 6, 64),
			risk,
			coverage,
			run.Answer,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// modelColumn renders the run's model identity per operation type.
func modelColumn(cfg batch.RunConfig) string {
	switch cfg.Operation {
	case batch.OpCompare:
		if len(cfg.Models) >= 2 {
			return fmt.Sprintf("%s vs %s", cfg.Models[0], cfg.Models[1])
		}
		return "default vs default"
	case batch.OpCritique:
		return fmt.Sprintf("%s (critic: %s)", cfg.AnswerModel, cfg.CriticModel)
	}
	return cfg.Model
}
