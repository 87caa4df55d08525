package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompletionCmd(done bool) *cobra.Command {
	use, short := "complete", "Mark an occurrence as completed"
	if !done {
		use, short = "uncomplete", "Clear the completion of an occurrence"
	}
	return &cobra.Command{
		Use:   use + " <kind> <item-id> <date>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			op := a.svc.Uncomplete
			if done {
				op = a.svc.Complete
			}
			if err := op(cmd.Context(), user, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd: %s/%s/%s\n", use, args[0], args[1], args[2])
			return nil
		},
	}
}
