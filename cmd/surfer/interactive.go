package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/surfer/pkg/executor/cli"
)

func newInteractiveCmd(a *app) *cobra.Command {
	var showGoals bool

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i", "repl"},
		Short:   "Read tasks from the terminal and solve them one by one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, release, err := buildProvider(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer release()

			s, err := newSession(a.cfg, provider)
			if err != nil {
				return err
			}
			executor := cli.NewExecutor(s.agent, s.events,
				cli.WithShowGoals(showGoals),
				cli.WithReader(cmd.InOrStdin()),
				cli.WithWriter(cmd.OutOrStdout()),
			)
			return executor.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&showGoals, "goals", true, "print the model's goal for every step")
	cmd.Flags().Int("max-steps", 0, "maximum number of agent steps per task")
	cmd.Flags().Bool("headless", true, "run the browser without a window")
	return cmd
}
