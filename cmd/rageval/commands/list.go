package commands

import (
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"rageval/pkg/counterfactual"
	"rageval/pkg/model"
	"rageval/pkg/similarity"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available components",
		RunE: func(cmd *cobra.Command, args []string) error {
			var methods []string
			for _, method := range similarity.AllMethods() {
				methods = append(methods, string(method))
			}
			var strategies []string
			for _, strategy := range counterfactual.AllStrategies() {
				strategies = append(strategies, string(strategy))
			}

			writeList("Similarity methods", methods)
			writeList("Counterfactual strategies", strategies)
			writeList("Operations", []string{"ask", "compare", "critique"})
			writeList("Providers", []string{"mock", "openai", "anthropic", "gemini", "groq"})
			writeList("Formats", []string{"table", "json", "csv", "markdown", "html"})

			groq := tablewriter.NewWriter(os.Stdout)
			groq.Header([]string{"Groq model", "Description"})
			ids := make([]string, 0)
			labels := model.GroqModels()
			for id := range labels {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				groq.Append([]string{id, labels[id]})
			}
			groq.Render()
			return nil
		},
	}
	return cmd
}

func writeList(title string, items []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{title})
	for _, item := range items {
		table.Append([]string{item})
	}
	table.Render()
}
