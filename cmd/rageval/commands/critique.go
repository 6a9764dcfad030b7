package commands

import (
	"context"

	"github.com/spf13/cobra"

	"rageval/pkg/core"
	"rageval/pkg/critique"
	"rageval/pkg/oplog"
)

func newCritiqueCommand() *cobra.Command {
	var (
		storePath      string
		docName        string
		topK           int
		method         string
		normalize      bool
		provider       string
		answerModel    string
		criticModel    string
		embeddingModel string
		temperature    float64
		selfCorrect    bool
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "critique [question]",
		Short: "Run the draft-critique-revise loop over retrieved evidence",
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

			answer, err := buildModel(provider, answerModel)
			if err != nil {
				return err
			}
			critic, err := buildModel(provider, criticModel)
			if err != nil {
				return err
			}

			controller := critique.Controller{
				AnswerModel: answer,
				CriticModel: critic,
				Options: core.GenerateOptions{
					Temperature: float32(resolveTemperature(temperature)),
					MaxTokens:   appConfig.Model.MaxTokens,
				},
			}
			session, err := controller.Run(ctx, question, chunks, selfCorrect)
			if err != nil {
				return err
			}

			openOpLog().Record(oplog.Entry{
				Operation: "critique",
				Parameters: map[string]any{
					"question":     question,
					"answer_model": answer.Name(),
					"critic_model": critic.Name(),
					"top_k":        k,
					"doc_name":     docName,
					"self_correct": selfCorrect,
					"similarity":   string(simMethod),
				},
				Results: map[string]any{
					"session_id":    session.ID,
					"num_rounds":    len(session.Rounds),
					"answer_length": len(session.Answer()),
				},
			})

			writer, closeWriter, err := outputWriter(outputPath)
			if err != nil {
				return err
			}
			defer closeWriter()
			return printJSON(writer, session)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "chunk store path")
	cmd.Flags().StringVar(&docName, "doc", "", "restrict retrieval to one document")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")
	cmd.Flags().StringVar(&method, "similarity", "", "similarity method")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "L2-normalize vectors before scoring")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider")
	cmd.Flags().StringVar(&answerModel, "answer-model", "", "model that drafts answers")
	cmd.Flags().StringVar(&criticModel, "critic-model", "", "model that judges answers")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", "", "embedding model name")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "model temperature (0 = config default)")
	cmd.Flags().BoolVar(&selfCorrect, "self-correct", true, "run a corrected second round")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")

	return cmd
}
