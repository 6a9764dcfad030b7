package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rageval/pkg/core"
	"rageval/pkg/faithfulness"
	"rageval/pkg/insights"
	"rageval/pkg/oplog"
	"rageval/pkg/qa"
)

func newAskCommand() *cobra.Command {
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
		skipMetrics    bool
		withInsights   bool
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question over the chunk pool and score its faithfulness",
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
			opts := core.GenerateOptions{
				Temperature: float32(resolveTemperature(temperature)),
				MaxTokens:   appConfig.Model.MaxTokens,
			}
			resp, err := qa.Answerer{Model: answerModel, Options: opts}.Answer(ctx, question, chunks)
			if err != nil {
				return err
			}

			result := map[string]any{
				"question": question,
				"answer":   resp.Content,
				"model":    answerModel.Name(),
				"sources":  chunks,
			}

			if !skipMetrics {
				report := faithfulness.NewScorer(embedder).Score(ctx, resp.Content, chunks, question)
				result["faithfulness"] = report
				result["retrieval_quality"] = faithfulness.ScoreQuality(chunks)
			}

			if withInsights {
				analysis, err := insights.Generate(ctx, answerModel, question, resp.Content, qa.ContextBlocks(chunks))
				if err != nil {
					logger.Warn("insights generation failed", zap.Error(err))
				} else {
					result["insights"] = analysis
				}
			}

			openOpLog().Record(oplog.Entry{
				Operation: "ask",
				Parameters: map[string]any{
					"question":          question,
					"top_k":             k,
					"doc_name":          docName,
					"model":             answerModel.Name(),
					"similarity":        string(simMethod),
					"normalize_vectors": normalize,
					"embedding_model":   embedder.Name(),
					"temperature":       resolveTemperature(temperature),
				},
				Results: map[string]any{
					"answer_length": len(resp.Content),
					"num_sources":   len(chunks),
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
	cmd.Flags().StringVar(&docName, "doc", "", "restrict retrieval to one document")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")
	cmd.Flags().StringVar(&method, "similarity", "", "similarity method (cosine, dot, neg_l2, neg_l1, hybrid)")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "L2-normalize vectors before scoring")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider (mock, openai, anthropic, gemini, groq)")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", "", "embedding model name")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "model temperature (0 = config default)")
	cmd.Flags().BoolVar(&skipMetrics, "skip-metrics", false, "skip faithfulness and quality scoring")
	cmd.Flags().BoolVar(&withInsights, "insights", false, "attach LLM insights for the answer")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")

	return cmd
}

func resolveTemperature(flag float64) float64 {
	if flag > 0 {
		return flag
	}
	return appConfig.Model.Temperature
}
