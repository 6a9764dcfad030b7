package report

import (
	"fmt"
	"io"
	"sort"

	"rageval/pkg/batch"
	"rageval/pkg/similarity"
)

type MarkdownReporter struct {
	Writer io.Writer
}

func (r MarkdownReporter) Report(report *batch.Report) error {
	meta := report.Metadata
	if _, err := fmt.Fprintf(r.Writer, "# Batch Evaluation Report\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "- Experiment: %s\n- Duration: %.2fs\n- Runs: %d (%d ok, %d failed)\n\n",
		meta.ExperimentID, meta.DurationSeconds, meta.TotalRuns, meta.SuccessfulRuns, meta.FailedRuns); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(r.Writer, "## Summary\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "| Metric | Value |\n|---|---|\n"); err != nil {
		return err
	}
	lines := []struct {
		Name  string
		Value string
	}{
		{"Avg latency (s)", fmt.Sprintf("%.3f", report.Summary.Overall.AvgLatencySeconds)},
		{"Avg answer length", fmt.Sprintf("%.1f", report.Summary.Overall.AvgAnswerLength)},
		{"Avg chunks retrieved", fmt.Sprintf("%.1f", report.Summary.Overall.AvgChunksRetrieved)},
	}
	if f := report.Summary.Faithfulness; f != nil {
		lines = append(lines,
			struct{ Name, Value string }{"Avg hallucination risk", fmt.Sprintf("%.3f", f.AvgHallucinationRisk)},
			struct{ Name, Value string }{"Avg evidence coverage", fmt.Sprintf("%.3f", f.AvgEvidenceCoverage)},
		)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(r.Writer, "| %s | %s |\n", line.Name, line.Value); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(r.Writer, "\n## By similarity method\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "| Method | Runs | Avg latency (s) | Avg answer length |\n|---|---|---|---|\n"); err != nil {
		return err
	}
	methods := make([]string, 0, len(report.Summary.ByMethod))
	for method := range report.Summary.ByMethod {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)
	for _, method := range methods {
		stats := report.Summary.ByMethod[similarity.Method(method)]
		if _, err := fmt.Fprintf(r.Writer, "| %s | %d | %.3f | %.1f |\n",
			method, stats.Count, stats.AvgLatency, stats.AvgAnswerLength); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(r.Writer, "\n## Runs\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "| # | Question | Operation | Method | Top-K | Status | Answer |\n|---|---|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for _, run := range report.Runs {
		if _, err := fmt.Fprintf(r.Writer, "| %d | %s | %s | %s | %d | %s | %s |\n",
			run.RunNumber,
			escapePipe(run.Question),
			run.Config.Operation,
			run.Config.SimilarityMethod,
			run.Config.TopK,
			run.Status,
			escapePipe(run.Answer),
		); err != nil {
			return err
		}
	}
	return nil
}

func escapePipe(input string) string {
	if input == "" {
		return ""
	}
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if r == '|' {
			out = append(out, '\\', r)
		} else if r == '\n' || r == '\r' {
			out = append(out, ' ')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
