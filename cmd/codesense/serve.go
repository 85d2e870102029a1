package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background worker until interrupted",
		Long:  `Starts the client with its background worker and processes queued ingestion and deletion tasks until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			client.Logger().Info("worker running, press ctrl-c to stop")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
			return nil
		},
	}
}
