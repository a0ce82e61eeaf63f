package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sailor-labs/sailor/internal/cli"
	"github.com/sailor-labs/sailor/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "saild",
		Short: "Sailor daemon and CLI",
		Long:  "Sailor daemon for running the document ingestion and retrieval API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
