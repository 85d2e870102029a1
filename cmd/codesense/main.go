// Package main is the entry point for the codesense CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	codesense "github.com/codesense-ai/codesense"
	"github.com/codesense-ai/codesense/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "codesense",
		Short: "Codesense code intelligence engine",
		Long:  `Codesense indexes git repositories into symbol graphs and embeddings, and answers questions about the code through a hybrid static/semantic query engine.`,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(ingestCmd(&envFile))
	cmd.AddCommand(statusCmd(&envFile))
	cmd.AddCommand(queryCmd(&envFile))
	cmd.AddCommand(reposCmd(&envFile))
	cmd.AddCommand(versionCmd())

	return cmd
}

// newClient builds a Client from .env and environment configuration.
func newClient(envFile string) (*codesense.Client, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return codesense.New(codesense.FromAppConfig(cfg))
}
