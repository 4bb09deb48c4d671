package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shieldcare/internal/health"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <metric> <value>",
		Short: "Print the advisory health label for one figure",
		Long: `Print the advisory health label for one figure.

Metrics: age, bloodPressure (bp), bloodSugar (bs). The label is informational
and has no bearing on eligibility.`,
		Example: "  shieldcare classify bp 135",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := health.ParseMetric(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value must be a whole number: %q", args[1])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), health.Status(value, metric))
			return err
		},
	}
}
