package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
)

type checkOptions struct {
	age     string
	bp      string
	bs      string
	noDelay bool
}

func newCheckCmd(a *app) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one eligibility check and print each stage",
		Example: `  shieldcare check --age 65 --bp 120 --bs 95
  shieldcare check --age 45 --bp 150 --bs 100 --no-delay`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.check(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.age, "age", "", "age in years")
	f.StringVar(&opts.bp, "bp", "", "systolic blood pressure in mmHg")
	f.StringVar(&opts.bs, "bs", "", "blood sugar in mg/dL")
	f.BoolVar(&opts.noDelay, "no-delay", false, "skip the simulated service latency")
	return cmd
}

func (a *app) check(cmd *cobra.Command, opts checkOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if opts.noDelay {
		a.cfg.Delays.Encrypt = 0
		a.cfg.Delays.StagePause = 0
		a.cfg.Delays.Contract = 0
		a.cfg.Delays.Decrypt = 0
	}

	workflow, err := a.newWorkflow(nil, a.quietLogger(cmd))
	if err != nil {
		return err
	}
	defer workflow.Close()

	values := map[health.Metric]string{
		health.MetricAge:           opts.age,
		health.MetricBloodPressure: opts.bp,
		health.MetricBloodSugar:    opts.bs,
	}
	for _, metric := range health.Metrics {
		if err := workflow.SetField(ctx, metric, values[metric]); err != nil {
			return err
		}
	}

	events, unsubscribe := workflow.Subscribe(16)
	defer unsubscribe()

	run, err := workflow.Submit(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case ev := <-events:
			printEvent(out, ev)
		case <-run.Done():
			drainEvents(out, events)
			return finishCheck(ctx, out, run)
		case <-ctx.Done():
			workflow.Reset(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

// drainEvents prints what was published before the run resolved.
func drainEvents(out io.Writer, events <-chan eligibility.Event) {
	for {
		select {
		case ev := <-events:
			printEvent(out, ev)
		default:
			return
		}
	}
}

func finishCheck(ctx context.Context, out io.Writer, run *eligibility.Run) error {
	result, err := run.Wait(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if result.Eligible {
		color.New(color.FgGreen, color.Bold).Fprintln(out, "ELIGIBLE")
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(out, "NOT ELIGIBLE")
	}
	printCondition(out, "Age over 60", result.Conditions.AgeCheck)
	printCondition(out, "Systolic BP over 140", result.Conditions.BPCheck)
	printCondition(out, "Blood sugar over 180", result.Conditions.BSCheck)
	return nil
}

func printEvent(out io.Writer, ev eligibility.Event) {
	switch ev.Kind {
	case eligibility.EventTransition:
		step := color.CyanString("[%d/5]", ev.Stage.Step())
		fmt.Fprintf(out, "%s %s\n", step, ev.Message)
		if ev.Stage == eligibility.StageEncrypted {
			for _, metric := range health.Metrics {
				fmt.Fprintf(out, "      %-24s %s\n", metric.Label(), color.HiBlackString(string(ev.Snapshot.Encrypted.Get(metric))))
			}
		}
		if ev.Stage == eligibility.StageDecrypting && ev.Snapshot.Receipt != nil {
			r := ev.Snapshot.Receipt
			fmt.Fprintf(out, "      tx %s (block %d)\n", color.HiBlackString(r.TransactionHash), r.BlockNumber)
		}
	case eligibility.EventFailed:
		fmt.Fprintln(out, color.RedString(ev.Message))
	}
}

func printCondition(out io.Writer, label string, met bool) {
	mark := color.HiBlackString("✗")
	if met {
		mark = color.GreenString("✓")
	}
	fmt.Fprintf(out, "  %s %s\n", mark, label)
}
