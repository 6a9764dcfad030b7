package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"rageval/pkg/batch"
	"rageval/pkg/core"
	"rageval/pkg/critique"
	"rageval/pkg/questions"
	"rageval/pkg/report"
	"rageval/pkg/similarity"
)

func newBatchCommand() *cobra.Command {
	var (
		storePath       string
		docName         string
		questionsPath   string
		operationsFlag  []string
		methodsFlag     []string
		topKFlag        []int
		embeddingModels []string
		normalize       bool
		provider        string
		modelName       string
		criticModel     string
		selfCorrect     bool
		temperature     float64
		noFaithfulness  bool
		workers         int
		rateLimitRPS    float64
		rateLimitBurst  int
		format          string
		outputPath      string
		sessionsPath    string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a batch experiment across questions, methods, top-k values, and operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			qs, err := questions.Load(questionsPath)
			if err != nil {
				return err
			}

			store, err := openStore(storePath)
			if err != nil {
				return err
			}

			var methods []similarity.Method
			for _, name := range methodsFlag {
				method, err := similarity.ParseMethod(name)
				if err != nil {
					return err
				}
				methods = append(methods, method)
			}

			operations, err := parseOperations(operationsFlag, modelName, criticModel, selfCorrect)
			if err != nil {
				return err
			}

			var limiter core.RateLimiter
			if rateLimitRPS > 0 {
				limiter, err = core.NewRateLimiter(rateLimitRPS, rateLimitBurst)
				if err != nil {
					return err
				}
			}

			progress := newProgressBar(progressWriter(cmd))

			harness := batch.Harness{
				Store: store,
				Models: func(name string) (core.Model, error) {
					return buildModel(provider, name)
				},
				Embedders: func(name string) (core.Embedder, error) {
					return buildEmbedder(name)
				},
				Workers:  resolveInt(workers, appConfig.Workers, 1),
				Limiter:  limiter,
				Logger:   logger,
				Progress: progress.Update,
			}

			spec := batch.Spec{
				Questions:           qs,
				Operations:          operations,
				Methods:             methods,
				EmbeddingModels:     embeddingModels,
				TopKValues:          topKFlag,
				DocName:             docName,
				Normalize:           normalize,
				Temperature:         float32(resolveTemperature(temperature)),
				IncludeFaithfulness: !noFaithfulness,
			}

			result, err := harness.Run(ctx, spec)
			if err != nil {
				return err
			}
			progress.Finish()

			if sessionsPath != "" {
				if err := exportSessions(harness.Sessions, sessionsPath); err != nil {
					return err
				}
			}

			writer, closeWriter, err := outputWriter(outputPath)
			if err != nil {
				return err
			}
			defer closeWriter()

			reporter, err := buildReporter(resolveString(format, appConfig.Format), writer)
			if err != nil {
				return err
			}
			return reporter.Report(result)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "chunk store path")
	cmd.Flags().StringVar(&docName, "doc", "", "restrict retrieval to one document")
	cmd.Flags().StringVar(&questionsPath, "questions", "", "question set file (json, jsonl, or txt)")
	cmd.Flags().StringSliceVar(&operationsFlag, "operations", []string{"ask"}, "operations to run (ask, compare, critique)")
	cmd.Flags().StringSliceVar(&methodsFlag, "methods", nil, "similarity methods (default all)")
	cmd.Flags().IntSliceVar(&topKFlag, "top-k", nil, "top-k values (default 5,7,10)")
	cmd.Flags().StringSliceVar(&embeddingModels, "embedding-models", nil, "embedding models (default auto-detect)")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "L2-normalize vectors before scoring")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider")
	cmd.Flags().StringVar(&modelName, "model", "", "model for ask/compare and critique drafts")
	cmd.Flags().StringVar(&criticModel, "critic-model", "", "critic model for critique operations")
	cmd.Flags().BoolVar(&selfCorrect, "self-correct", true, "enable self-correction for critique operations")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "model temperature (0 = config default)")
	cmd.Flags().BoolVar(&noFaithfulness, "no-faithfulness", false, "skip faithfulness metrics")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of workers")
	cmd.Flags().Float64Var(&rateLimitRPS, "rate-limit-rps", 0, "max provider requests per second (0 = unlimited)")
	cmd.Flags().IntVar(&rateLimitBurst, "rate-limit-burst", 1, "rate limit burst size")
	cmd.Flags().StringVar(&format, "format", "", "output format (table, json, csv, markdown, html)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")
	cmd.Flags().StringVar(&sessionsPath, "sessions-output", "", "write full critique session transcripts to this file")

	_ = cmd.MarkFlagRequired("questions")

	return cmd
}

func parseOperations(names []string, modelName, criticModel string, selfCorrect bool) ([]batch.Operation, error) {
	operations := make([]batch.Operation, 0, len(names))
	for _, name := range names {
		switch name {
		case batch.OpAsk:
			operations = append(operations, batch.Operation{Type: batch.OpAsk, Model: modelName})
		case batch.OpCompare:
			operations = append(operations, batch.Operation{Type: batch.OpCompare, Models: []string{modelName, criticModel}})
		case batch.OpCritique:
			operations = append(operations, batch.Operation{
				Type:        batch.OpCritique,
				AnswerModel: modelName,
				CriticModel: criticModel,
				SelfCorrect: selfCorrect,
			})
		default:
			return nil, fmt.Errorf("unknown operation: %s", name)
		}
	}
	return operations, nil
}

// exportSessions writes every critique session an experiment stored to path
// and tears the store down afterwards.
func exportSessions(store *critique.Store, path string) error {
	if store == nil {
		return nil
	}
	ids := store.IDs()
	sessions := make([]*critique.Session, 0, len(ids))
	for _, id := range ids {
		session, err := store.Get(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	for _, id := range ids {
		store.Delete(id)
	}
	return nil
}

func buildReporter(format string, writer io.Writer) (report.Reporter, error) {
	if format == "" {
		format = report.FormatJSON
	}
	switch format {
	case report.FormatJSON:
		return report.JSONReporter{Writer: writer, Pretty: true}, nil
	case report.FormatTable:
		return report.TableReporter{Writer: writer}, nil
	case report.FormatHTML:
		return report.HTMLReporter{Writer: writer}, nil
	case report.FormatMarkdown:
		return report.MarkdownReporter{Writer: writer}, nil
	case report.FormatCSV:
		return report.CSVReporter{Writer: writer}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

type progressBar struct {
	writer io.Writer
	start  time.Time
	isTTY  bool
	total  int
}

func newProgressBar(writer io.Writer) *progressBar {
	return &progressBar{
		writer: writer,
		start:  time.Now(),
		isTTY:  isTerminal(writer),
	}
}

func (p *progressBar) Update(completed, total int) {
	p.total = total
	width := 30
	if total <= 0 {
		return
	}

	ratio := float64(completed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))

	bar := strings.Repeat("=", filled) + strings.Repeat(".", width-filled)
	percent := int(ratio * 100)
	elapsed := time.Since(p.start).Truncate(time.Second)

	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	line := fmt.Sprintf("[%s] %3d%% (%d/%d) %s", barStyle.Render(bar), percent, completed, total, elapsed)
	if p.isTTY {
		fmt.Fprintf(p.writer, "\r%s", line)
	} else {
		fmt.Fprintf(p.writer, "%s\n", line)
	}
}

func (p *progressBar) Finish() {
	if p.isTTY && p.total > 0 {
		fmt.Fprintln(p.writer)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func progressWriter(cmd *cobra.Command) io.Writer {
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	if isTerminal(stderr) {
		return stderr
	}
	if isTerminal(stdout) {
		return stdout
	}
	return stderr
}
