package main

import (
	"github.com/spf13/cobra"

	"shieldcare/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, err := a.newWorkflow(nil, a.quietLogger(cmd))
			if err != nil {
				return err
			}
			defer workflow.Close()
			return tui.Run(cmd.Context(), workflow)
		},
	}
}
