// committee - an agent investment committee for equity allocation
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "committee",
		Short: "Agent investment committee",
		Long: `committee fans out analyst agents over an instrument universe,
review-gates their signals, aggregates them by weighted vote, and
emits a normalized portfolio allocation.`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("committee version %s\n", version)
		},
	}
}
