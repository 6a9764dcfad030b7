package commands

import (
	"context"

	"github.com/spf13/cobra"

	"rageval/pkg/core"
	"rageval/pkg/counterfactual"
	"rageval/pkg/oplog"
)

func newCounterfactualCommand() *cobra.Command {
	var (
		storePath      string
		docName        string
		topK           int
		method         string
		normalize      bool
		provider       string
		modelName      string
		embeddingModel string
		temperature    float64
		strategiesFlag []string
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "counterfactual [question]",
		Short: "Measure how answers change when the retrieved evidence is perturbed",
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
			simMethod, err := resolveMethod(method)
			if err != nil {
				return err
			}
			k := resolveTopK(topK)

			chunks, _, err := retrieve(ctx, embedder, store, question, docName, simMethod, k, normalize)
			if err != nil {
				return err
			}

			answerModel, err := buildModel(provider, modelName)
			if err != nil {
				return err
			}

			strategies := make([]counterfactual.Strategy, 0, len(strategiesFlag))
			for _, name := range strategiesFlag {
				strategy, err := counterfactual.ParseStrategy(name)
				if err != nil {
					return err
				}
				strategies = append(strategies, strategy)
			}
			if len(strategies) == 0 {
				strategies = counterfactual.AllStrategies()
			}

			analyzer := counterfactual.Analyzer{
				Model:    answerModel,
				Embedder: embedder,
				Options: core.GenerateOptions{
					Temperature: float32(resolveTemperature(temperature)),
					MaxTokens:   appConfig.Model.MaxTokens,
				},
			}

			// The original answer is generated once and shared so every
			// strategy is compared against the same baseline.
			var originalAnswer string
			results := make([]*counterfactual.Result, 0, len(strategies))
			for _, strategy := range strategies {
				result, err := analyzer.Run(ctx, question, chunks, strategy, originalAnswer)
				if err != nil {
					return err
				}
				originalAnswer = result.OriginalAnswer
				results = append(results, result)
			}

			openOpLog().Record(oplog.Entry{
				Operation: "advanced_counterfactual",
				Parameters: map[string]any{
					"question":   question,
					"top_k":      k,
					"doc_name":   docName,
					"model":      answerModel.Name(),
					"similarity": string(simMethod),
					"strategies": strategiesFlag,
				},
				Results: map[string]any{
					"num_strategies": len(results),
				},
			})

			writer, closeWriter, err := outputWriter(outputPath)
			if err != nil {
				return err
			}
			defer closeWriter()
			return printJSON(writer, map[string]any{
				"question": question,
				"results":  results,
			})
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "chunk store path")
	cmd.Flags().StringVar(&docName, "doc", "", "restrict retrieval to one document")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")
	cmd.Flags().StringVar(&method, "similarity", "", "similarity method")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "L2-normalize vectors before scoring")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", "", "embedding model name")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "model temperature (0 = config default)")
	cmd.Flags().StringSliceVar(&strategiesFlag, "strategies", nil, "perturbation strategies (default all)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")

	return cmd
}
