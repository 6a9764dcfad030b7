package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"rageval/pkg/faithfulness"
	"rageval/pkg/ranker"
	"rageval/pkg/similarity"
)

func newRankCommand() *cobra.Command {
	var (
		storePath      string
		docName        string
		topK           int
		methodsFlag    []string
		normalize      bool
		embeddingModel string
		format         string
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "rank [question]",
		Short: "Rank the chunk pool under one or more similarity methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := requireQuestion(args)
			if err != nil {
				return err
			}
			ctx := context.Background()

			store, err := openStore(storePath)
			if err != nil {
				return err
			}
			embedder, err := buildEmbedder(embeddingModel)
			if err != nil {
				return err
			}

			methods := make([]similarity.Method, 0, len(methodsFlag))
			for _, name := range methodsFlag {
				method, err := similarity.ParseMethod(name)
				if err != nil {
					return err
				}
				methods = append(methods, method)
			}

			pool, err := store.List(ctx, "")
			if err != nil {
				return err
			}
			queryVec, err := embedder.EmbedQuery(ctx, question)
			if err != nil {
				return err
			}
			result, err := ranker.Rank(pool, queryVec, question, ranker.Options{
				K:         resolveTopK(topK),
				Methods:   methods,
				DocName:   docName,
				Normalize: normalize,
			})
			if err != nil {
				return err
			}

			writer, closeWriter, err := outputWriter(outputPath)
			if err != nil {
				return err
			}
			defer closeWriter()

			if resolveString(format, appConfig.Format) == "table" {
				printRankTables(writer, result)
				return nil
			}

			quality := make(map[string]faithfulness.QualityReport, len(result.ByMethod))
			for method, chunks := range result.ByMethod {
				quality[string(method)] = faithfulness.ScoreQuality(chunks)
			}
			return printJSON(writer, map[string]any{
				"question":          question,
				"rankings":          result.ByMethod,
				"stats":             result.Stats,
				"agreement":         result.Agreement,
				"retrieval_quality": quality,
			})
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "chunk store path")
	cmd.Flags().StringVar(&docName, "doc", "", "restrict ranking to one document")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to keep per method")
	cmd.Flags().StringSliceVar(&methodsFlag, "methods", nil, "similarity methods (default all)")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "L2-normalize vectors before scoring")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", "", "embedding model name")
	cmd.Flags().StringVar(&format, "format", "", "output format (json, table)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")

	return cmd
}

func printRankTables(writer io.Writer, result *ranker.Result) {
	methods := make([]string, 0, len(result.ByMethod))
	for method := range result.ByMethod {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)

	for _, name := range methods {
		method := similarity.Method(name)
		table := tablewriter.NewWriter(writer)
		table.Header([]string{fmt.Sprintf("Rank (%s)", name), "Doc", "Score", "Text"})
		for _, chunk := range result.ByMethod[method] {
			table.Append([]string{
				fmt.Sprintf("%d", chunk.Rank),
				chunk.Chunk.DocName,
				fmt.Sprintf("%.4f", chunk.PrimaryScore),
				truncateText(chunk.Chunk.Text, 60),
			})
		}
		table.Render()
	}

	agreement := tablewriter.NewWriter(writer)
	header := append([]string{"Agreement %"}, methods...)
	agreement.Header(header)
	for _, m1 := range methods {
		row := []string{m1}
		for _, m2 := range methods {
			row = append(row, fmt.Sprintf("%.1f", result.Agreement[similarity.Method(m1)][similarity.Method(m2)]))
		}
		agreement.Append(row)
	}
	agreement.Render()
}

func truncateText(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
