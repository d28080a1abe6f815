package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "parleyd",
		Short: "Parley - knowledge-grounded conversational assistant service",
		Long: `Parleyd serves the retrieval-augmented chat and knowledge base APIs.

Environment variables use the PARLEY_ prefix
(PARLEY_OPENAI_API_KEY is required).`,
		Version: version,
	}

	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
