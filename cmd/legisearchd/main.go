package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/legisearch/legisearch/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "legisearchd",
		Short: "Legisearch daemon and CLI",
		Long:  "Legisearch daemon for serving the question-answering API and managing the document index",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.AskCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
