package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/service"
)

type outputOptions struct {
	JSON    bool
	Timeout time.Duration
}

type healthOptions struct {
	outputOptions
	Window time.Duration
}

func newOutputFlagSet(name string, opts *outputOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of a table")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")
	return fs
}

func parseOutputFlags(name string, args []string) (outputOptions, error) {
	var opts outputOptions
	fs := newOutputFlagSet(name, &opts)
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, errors.New("timeout must be positive")
	}
	return opts, nil
}

func parseHealthFlags(args []string) (healthOptions, error) {
	var opts healthOptions
	fs := newOutputFlagSet("health", &opts.outputOptions)
	fs.DurationVar(&opts.Window, "window", service.DefaultHealthWindow, "Trailing window of traffic to score")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, errors.New("timeout must be positive")
	}
	if opts.Window <= 0 {
		return opts, errors.New("window must be positive")
	}
	return opts, nil
}

func runQueueStats(cmdCtx *commandContext, args []string) error {
	opts, err := parseOutputFlags("queue-stats", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svcs *adminServices) error {
		depths, err := svcs.Queue.Stats(ctx)
		if err != nil {
			return fmt.Errorf("queue stats: %w", err)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, depths)
		}
		return printQueueDepths(cmdCtx.Out, depths)
	})
}

func printQueueDepths(w io.Writer, depths []model.QueueDepth) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "QUEUE\tPENDING\tPROCESSING\tSTUCK\tCOMPLETED\tFAILED"); err != nil {
		return fmt.Errorf("write queue header: %w", err)
	}
	for _, d := range depths {
		if err := writef(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			d.Queue, d.Pending, d.Processing, d.Stuck, d.Completed, d.Failed); err != nil {
			return fmt.Errorf("write queue row %q: %w", d.Queue, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush queue stats: %w", err)
	}
	return nil
}

func runRetrySweep(cmdCtx *commandContext, args []string) error {
	opts, err := parseOutputFlags("retry-run", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svcs *adminServices) error {
		report, err := svcs.RetryRunner.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("retry sweep: %w", err)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, report)
		}
		return printRetryReport(cmdCtx.Out, &report)
	})
}

func printRetryReport(w io.Writer, report *model.RetryRunReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "KIND\tPROCESSED\tSUCCEEDED\tFAILED"); err != nil {
		return fmt.Errorf("write retry header: %w", err)
	}
	kinds := make([]string, 0, len(report.Kinds))
	for kind := range report.Kinds {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		c := report.Kinds[model.RetryKind(kind)]
		if err := writef(tw, "%s\t%d\t%d\t%d\n", kind, c.Processed, c.Succeeded, c.Failed); err != nil {
			return fmt.Errorf("write retry row %q: %w", kind, err)
		}
	}
	t := report.Totals()
	if err := writef(tw, "total\t%d\t%d\t%d\n", t.Processed, t.Succeeded, t.Failed); err != nil {
		return fmt.Errorf("write retry totals: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush retry report: %w", err)
	}
	return writef(w, "\nLeases reclaimed: %d  Stuck requeued: %d  Purged: %d\n",
		report.LeasesReclaimed, report.StuckRequeued, report.Purged)
}

func runReap(cmdCtx *commandContext, args []string) error {
	opts, err := parseOutputFlags("reap", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svcs *adminServices) error {
		report, err := svcs.Reaper.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("reap: %w", err)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, report)
		}
		return printReaperReport(cmdCtx.Out, report)
	})
}

func printReaperReport(w io.Writer, report service.ReaperReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		count int64
	}{
		{"Expired queue items", report.ExpiredQueueItems},
		{"Stuck items requeued", report.RequeuedStuck},
		{"Old metrics", report.OldMetrics},
		{"Expired triggers", report.ExpiredTriggers},
		{"Total", report.Total()},
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%d\n", row.label, row.count); err != nil {
			return fmt.Errorf("write reaper row %q: %w", row.label, err)
		}
	}
	if err := writef(tw, "Elapsed\t%s\n", report.Elapsed.Round(time.Millisecond)); err != nil {
		return fmt.Errorf("write reaper elapsed: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush reaper report: %w", err)
	}
	return nil
}

func runHealth(cmdCtx *commandContext, args []string) error {
	opts, err := parseHealthFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svcs *adminServices) error {
		report, err := svcs.Health.Report(ctx, opts.Window)
		if err != nil {
			return fmt.Errorf("health report: %w", err)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, report)
		}
		return printHealthReport(cmdCtx.Out, report)
	})
}

func printHealthReport(w io.Writer, report *model.HealthReport) error {
	m := report.Metrics
	lines := []string{
		fmt.Sprintf("Status: %s (score %d, window %s)", report.Status, report.Score, report.Window),
		fmt.Sprintf("Webhooks: %d total, %d succeeded, %d failed (%.1f%% success)",
			m.Total, m.Succeeded, m.Failed, m.SuccessRate()*100),
		fmt.Sprintf("Latency: avg %s, p95 %s", m.AvgLatency, m.P95Latency),
		fmt.Sprintf("Direct path: %d attempted, %d fell back", m.DirectTotal, m.DirectFailed),
		fmt.Sprintf("Queue: %d pending, %d stuck", report.Backlog, report.Stuck),
	}
	if len(report.Issues) > 0 {
		lines = append(lines, "Issues:")
		for _, issue := range report.Issues {
			lines = append(lines, "  - "+issue)
		}
	}
	return writeln(w, strings.Join(lines, "\n"))
}
