package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stringsvc version %s\n", Version)
			fmt.Fprintf(out, "  commit:  %s\n", Commit)
			fmt.Fprintf(out, "  built:   %s\n", BuildDate)
		},
	}
}
