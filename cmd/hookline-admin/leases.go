package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/hookline/internal/domain/model"
)

type releaseLeaseOptions struct {
	Key    string
	Holder string
	Yes    bool
}

var errLeaseNotHeld = errors.New("lease not held")

func runListLeases(cmdCtx *commandContext, args []string) error {
	opts, err := parseOutputFlags("leases", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svcs *adminServices) error {
		leases, err := svcs.Leases.List(ctx)
		if err != nil {
			return fmt.Errorf("list leases: %w", err)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, leases)
		}
		return printLeases(cmdCtx.Out, leases, time.Now())
	})
}

func printLeases(w io.Writer, leases []model.Lease, now time.Time) error {
	if len(leases) == 0 {
		return writeln(w, "No leases held.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "KEY\tHOLDER\tACQUIRED\tEXPIRES IN"); err != nil {
		return fmt.Errorf("write lease header: %w", err)
	}
	for _, l := range leases {
		expires := "expired"
		if !l.Expired(now) {
			expires = l.ExpiresAt.Sub(now).Round(time.Second).String()
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\n",
			l.Key, l.HolderID, l.AcquiredAt.UTC().Format(time.RFC3339), expires); err != nil {
			return fmt.Errorf("write lease row %q: %w", l.Key, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush leases: %w", err)
	}
	return nil
}

func runReleaseLease(cmdCtx *commandContext, args []string) error {
	opts, err := parseReleaseLeaseFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, svcs *adminServices) error {
		holder := opts.Holder
		if holder == "" {
			leases, err := svcs.Leases.List(ctx)
			if err != nil {
				return fmt.Errorf("list leases: %w", err)
			}
			holder, err = currentHolder(leases, opts.Key)
			if err != nil {
				return err
			}
		}

		if !opts.Yes {
			if err := confirm(cmdCtx, fmt.Sprintf("About to release lease %q held by %q.", opts.Key, holder)); err != nil {
				return err
			}
		}

		if err := svcs.Leases.Release(ctx, opts.Key, holder); err != nil {
			return fmt.Errorf("release lease: %w", err)
		}
		cmdCtx.Logger.Info("lease released", "key", opts.Key, "holder", holder)
		return nil
	})
}

func currentHolder(leases []model.Lease, key string) (string, error) {
	for _, l := range leases {
		if l.Key == key {
			return l.HolderID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errLeaseNotHeld, key)
}

func parseReleaseLeaseFlags(args []string) (releaseLeaseOptions, error) {
	fs := flag.NewFlagSet("release-lease", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts releaseLeaseOptions
	fs.StringVar(&opts.Key, "key", "", "Lease key, e.g. company:<id>:location:<id>")
	fs.StringVar(&opts.Holder, "holder", "", "Holder to release as (defaults to the current holder)")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Key = strings.TrimSpace(opts.Key)
	opts.Holder = strings.TrimSpace(opts.Holder)
	if opts.Key == "" {
		return opts, errors.New("--key is required")
	}
	return opts, nil
}
