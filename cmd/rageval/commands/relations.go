package commands

import (
	"context"

	"github.com/spf13/cobra"

	"rageval/pkg/oplog"
	"rageval/pkg/relations"
)

func newRelationsCommand() *cobra.Command {
	var (
		storePath     string
		provider      string
		modelName     string
		maxPairs      int
		minSimilarity float64
		outputPath    string
	)

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Analyze how the stored documents relate to each other",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store, err := openStore(storePath)
			if err != nil {
				return err
			}
			narrator, err := buildModel(provider, modelName)
			if err != nil {
				return err
			}

			analyzer := relations.Analyzer{
				Store:         store,
				Model:         narrator,
				MaxPairs:      maxPairs,
				MinSimilarity: minSimilarity,
			}
			result, err := analyzer.Analyze(ctx)
			if err != nil {
				return err
			}

			openOpLog().Record(oplog.Entry{
				Operation: "advanced_relations",
				Parameters: map[string]any{
					"model":          narrator.Name(),
					"max_pairs":      maxPairs,
					"min_similarity": minSimilarity,
				},
				Results: map[string]any{
					"num_documents": len(result.Documents),
					"num_relations": len(result.Relations),
				},
			})

			writer, closeWriter, err := outputWriter(outputPath)
			if err != nil {
				return err
			}
			defer closeWriter()
			return printJSON(writer, result)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "chunk store path")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().IntVar(&maxPairs, "max-pairs", relations.DefaultMaxPairs, "maximum document pairs to narrate")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", relations.DefaultMinSimilarity, "minimum pair similarity to keep")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")

	return cmd
}
