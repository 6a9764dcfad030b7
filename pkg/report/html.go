package report

import (
	"html/template"
	"io"

	"rageval/pkg/batch"
)

type HTMLReporter struct {
	Writer io.Writer
	Title  string
}

func (r HTMLReporter) Report(report *batch.Report) error {
	title := r.Title
	if title == "" {
		title = "Batch Evaluation Report"
	}

	data := struct {
		Title  string
		Report *batch.Report
	}{
		Title:  title,
		Report: report,
	}

	tpl := template.Must(template.New("report").Parse(htmlTemplate))
	return tpl.Execute(r.Writer, data)
}

const htmlTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{ .Title }}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 24px; }
    table { border-collapse: collapse; width: 100%; margin-top: 16px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    th { background: #f5f5f5; text-align: left; }
    .meta { margin-bottom: 12px; }
    .failed { color: #b00020; }
  </style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <div class="meta">
    <div><strong>Experiment:</strong> {{ .Report.Metadata.ExperimentID }}</div>
    <div><strong>Duration:</strong> {{ printf "%.2f" .Report.Metadata.DurationSeconds }}s</div>
    <div><strong>Runs:</strong> {{ .Report.Metadata.TotalRuns }} ({{ .Report.Metadata.SuccessfulRuns }} ok, {{ .Report.Metadata.FailedRuns }} failed)</div>
  </div>
  <h2>Summary</h2>
  <table>
    <tr><th>Metric</th><th>Value</th></tr>
    <tr><td>Avg latency (s)</td><td>{{ printf "%.3f" .Report.Summary.Overall.AvgLatencySeconds }}</td></tr>
    <tr><td>Avg answer length</td><td>{{ printf "%.1f" .Report.Summary.Overall.AvgAnswerLength }}</td></tr>
    <tr><td>Avg chunks retrieved</td><td>{{ printf "%.1f" .Report.Summary.Overall.AvgChunksRetrieved }}</td></tr>
    {{ with .Report.Summary.Faithfulness }}
    <tr><td>Avg hallucination risk</td><td>{{ printf "%.3f" .AvgHallucinationRisk }}</td></tr>
    <tr><td>Avg evidence coverage</td><td>{{ printf "%.3f" .AvgEvidenceCoverage }}</td></tr>
    {{ end }}
  </table>
  <h2>Runs</h2>
  <table>
    <tr><th>#</th><th>Question</th><th>Operation</th><th>Method</th><th>Top-K</th><th>Status</th><th>Answer</th><th>Error</th></tr>
    {{ range .Report.Runs }}
    <tr>
      <td>{{ .RunNumber }}</td>
      <td>{{ .Question }}</td>
      <td>{{ .Config.Operation }}</td>
      <td>{{ .Config.SimilarityMethod }}</td>
      <td>{{ .Config.TopK }}</td>
      <td{{ if eq .Status "failed" }} class="failed"{{ end }}>{{ .Status }}</td>
      <td>{{ .Answer }}</td>
      <td>{{ .Error }}</td>
    </tr>
    {{ end }}
  </table>
</body>
</html>
`
