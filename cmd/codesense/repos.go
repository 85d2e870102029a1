package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func reposCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage indexed repositories",
	}
	cmd.AddCommand(reposListCmd(envFile))
	cmd.AddCommand(reposRmCmd(envFile))
	return cmd
}

func reposListCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			repos, err := client.Repositories(cmd.Context())
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no repositories")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREPOSITORY\tLAST INDEXED COMMIT")
			for _, repo := range repos {
				commit := repo.LatestCommitSHA()
				if commit == "" {
					commit = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", repo.ID(), repo.FullName(), commit)
			}
			return w.Flush()
		},
	}
}

func reposRmCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <repo>",
		Short: "Queue removal of a repository and all derived data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx := cmd.Context()
			repo, err := client.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := client.DeleteRepository(ctx, repo.ID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removal of %s queued\n", repo.FullName())
			return nil
		},
	}
}
