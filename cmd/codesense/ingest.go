package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	codesense "github.com/codesense-ai/codesense"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
)

func ingestCmd(envFile *string) *cobra.Command {
	var branch string
	var wait bool

	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Queue ingestion of a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx := cmd.Context()
			run, err := client.Ingest(ctx, args[0], branch)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s queued (commit %s)\n", run.ID(), run.CommitSHA())
			if !wait {
				return nil
			}
			return waitForRun(ctx, cmd, client, run)
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to ingest (default: remote HEAD)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "block until the run finishes")
	return cmd
}

func waitForRun(ctx context.Context, cmd *cobra.Command, client *codesense.Client, run domainrepo.IngestionRun) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastStage := domainrepo.RunStage("")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := client.RunStatus(ctx, run.ID())
		if err != nil {
			return err
		}
		if current.Stage() != lastStage {
			lastStage = current.Stage()
			fmt.Fprintf(cmd.OutOrStdout(), "stage: %s\n", lastStage)
		}
		if current.Status().IsTerminal() {
			printRun(cmd, current)
			return nil
		}
	}
}

func printRun(cmd *cobra.Command, run domainrepo.IngestionRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:    %s\n", run.ID())
	fmt.Fprintf(out, "status: %s\n", run.Status())
	if run.Stage() != "" {
		fmt.Fprintf(out, "stage:  %s\n", run.Stage())
	}
	if run.ChunksTotal() > 0 {
		fmt.Fprintf(out, "chunks: %d embedded, %d failed of %d\n",
			run.ChunksEmbedded(), run.ChunksFailed(), run.ChunksTotal())
	}
	if run.Degraded() {
		fmt.Fprintln(out, "degraded: some chunks have no embeddings")
	}
	if run.ErrorMessage() != "" {
		fmt.Fprintf(out, "error:  %s\n", run.ErrorMessage())
	}
}
