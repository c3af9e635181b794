// Package cmd holds the stringsvc command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stringsvc",
		Short: "String analysis service",
		Long: `stringsvc analyzes strings, stores their computed properties and
answers structured and natural-language filter queries over them.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newParseCmd(),
		newLoadTestCmd(),
		newVersionCmd(),
	)
	return root
}
