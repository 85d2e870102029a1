package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func statusCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the status of an ingestion run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", args[0], err)
			}

			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			run, err := client.RunStatus(cmd.Context(), runID)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			return nil
		},
	}
}
