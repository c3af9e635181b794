package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
)

type analysis struct {
	ID         string              `json:"id"`
	Value      string              `json:"value"`
	Properties analyzer.Properties `json:"properties"`
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <value>...",
		Short: "Print the computed properties of a string",
		Long: `Analyze computes the same properties the service stores for a string,
without starting the server. Multiple arguments are joined with a space.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.Join(args, " ")
			props := analyzer.Analyze(value)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis{ID: props.SHA256Hash, Value: value, Properties: props})
		},
	}
}
