package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/parser"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>...",
		Short: "Show how a natural-language query is interpreted",
		Long: `Parse runs the natural-language query parser and prints the resulting
filter set together with the rules that fired. It fails when nothing in the
query is recognized or the filters contradict each other.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interp := parser.Explain(strings.Join(args, " "))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(interp); err != nil {
				return err
			}
			if interp.Filters.IsEmpty() {
				return fmt.Errorf("query %q is not interpretable", interp.Original)
			}
			return parser.Validate(interp.Filters)
		},
	}
}
