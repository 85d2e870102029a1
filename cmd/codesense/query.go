package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func queryCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <repo> <question...>",
		Short: "Ask a question about an indexed repository",
		Long:  `Answers a question about a repository's latest indexed commit. The repo argument is an "owner/name" reference or a remote URL.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			question := strings.Join(args[1:], " ")
			answer, err := client.Query(cmd.Context(), args[0], question)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if answer.Degraded {
				fmt.Fprintf(out, "\n(degraded: %s)\n", answer.DegradedReason)
			}
			if len(answer.Citations) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, c := range answer.Citations {
					fmt.Fprintf(out, "  %s:%d-%d\n", c.FilePath, c.StartLine, c.EndLine)
				}
			}
			return nil
		},
	}
	return cmd
}
