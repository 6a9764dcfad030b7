package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"rageval/pkg/batch"
	"rageval/pkg/similarity"
)

type TableReporter struct {
	Writer io.Writer
}

func (r TableReporter) Report(report *batch.Report) error {
	table := tablewriter.NewWriter(r.Writer)
	table.Header([]string{"Metric", "Value"})
	table.Append([]string{"Total runs", fmt.Sprintf("%d", report.Metadata.TotalRuns)})
	table.Append([]string{"Successful runs", fmt.Sprintf("%d", report.Metadata.SuccessfulRuns)})
	table.Append([]string{"Failed runs", fmt.Sprintf("%d", report.Metadata.FailedRuns)})
	table.Append([]string{"Duration", fmt.Sprintf("%.2fs", report.Metadata.DurationSeconds)})
	table.Append([]string{"Avg latency", fmt.Sprintf("%.3fs", report.Summary.Overall.AvgLatencySeconds)})
	table.Append([]string{"Avg answer length", fmt.Sprintf("%.1f", report.Summary.Overall.AvgAnswerLength)})
	table.Append([]string{"Avg chunks retrieved", fmt.Sprintf("%.1f", report.Summary.Overall.AvgChunksRetrieved)})
	if f := report.Summary.Faithfulness; f != nil {
		table.Append([]string{"Avg hallucination risk", fmt.Sprintf("%.3f", f.AvgHallucinationRisk)})
		table.Append([]string{"Avg evidence coverage", fmt.Sprintf("%.3f", f.AvgEvidenceCoverage)})
	}
	table.Render()

	if len(report.Summary.ByMethod) == 0 {
		return nil
	}

	methods := make([]string, 0, len(report.Summary.ByMethod))
	for method := range report.Summary.ByMethod {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)

	byMethod := tablewriter.NewWriter(r.Writer)
	byMethod.Header([]string{"Method", "Runs", "Avg latency", "Avg answer length"})
	for _, method := range methods {
		stats := report.Summary.ByMethod[similarity.Method(method)]
		byMethod.Append([]string{
			method,
			fmt.Sprintf("%d", stats.Count),
			fmt.Sprintf("%.3fs", stats.AvgLatency),
			fmt.Sprintf("%.1f", stats.AvgAnswerLength),
		})
	}
	byMethod.Render()
	return nil
}
