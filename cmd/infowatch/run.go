package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/infowatch/internal/storage"
	"github.com/pders01/infowatch/internal/watch"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var once, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check the listing and post new announcements",
		Long: `Check the announcement listing, post every article not seen on the previous
check and remember the current list. Without --once the check repeats on the
configured interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.load(historyAndIndex)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !opts.quiet {
				showBanner(cmd.OutOrStdout())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			notifier, err := rt.notifier(ctx, dryRun)
			if err != nil {
				return err
			}
			w, err := rt.watcher(notifier)
			if err != nil {
				return err
			}

			if once {
				report, err := w.RunPass(ctx)
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			}

			return watch.NewScheduler(w, rt.cfg.Schedule.Interval, rt.log.Named("scheduler")).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single check and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of posting them")
	return cmd
}

func printReport(w io.Writer, r *storage.PassReport) {
	outcome := okStyle.Render(r.Outcome)
	if r.Outcome == watch.OutcomeFailed || r.Outcome == watch.OutcomeInterrupted {
		outcome = failStyle.Render(r.Outcome)
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("outcome:"), outcome)
	if r.Stage != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("stage:"), r.Stage)
	}
	fmt.Fprintf(w, "%s %d extracted, %d new, %d delivered, %d failed\n",
		labelStyle.Render("articles:"), r.Extracted, r.New, r.Delivered, r.Failed)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("took:"), r.Finished.Sub(r.Started).Round(time.Millisecond))
}
