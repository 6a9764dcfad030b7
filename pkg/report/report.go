// Package report exports batch experiment reports in several formats.
package report

import "rageval/pkg/batch"

// Reporter writes a batch experiment report.
type Reporter interface {
	Report(report *batch.Report) error
}

const (
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)
