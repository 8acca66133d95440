package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/infowatch/internal/storage"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the remembered article list and recent deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.load(historyOnly)
			if err != nil {
				return err
			}
			defer rt.Close()
			out := cmd.OutOrStdout()

			snapshots := storage.NewSnapshotStore(rt.cfg.State.Path)
			snapshot, err := snapshots.Load()
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", failStyle.Render("snapshot unreadable:"), err)
			}

			fmt.Fprintln(out, headingStyle.Render("Snapshot"))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("file:"), snapshots.Path())
			if snapshot.IsEmpty() {
				fmt.Fprintln(out, dimStyle.Render("no articles recorded yet"))
			} else {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("last check:"), formatTime(snapshot.LastCheck))
				fmt.Fprintf(out, "%s %d\n", labelStyle.Render("articles:"), len(snapshot.Articles))
				for _, a := range snapshot.Articles {
					fmt.Fprintf(out, "  %s %s\n", a.Title, dimStyle.Render(a.URL))
				}
			}

			if rt.history == nil {
				return nil
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, headingStyle.Render("Last pass"))
			report, err := rt.history.LastPassReport()
			switch {
			case errors.Is(err, storage.ErrNotFound):
				fmt.Fprintln(out, dimStyle.Render("no passes recorded yet"))
			case err != nil:
				return fmt.Errorf("reading last pass: %w", err)
			default:
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("started:"), formatTime(report.Started))
				printReport(out, report)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, headingStyle.Render("Recent deliveries"))
			deliveries, err := rt.history.GetDeliveries(limit)
			if err != nil {
				return fmt.Errorf("reading deliveries: %w", err)
			}
			if len(deliveries) == 0 {
				fmt.Fprintln(out, dimStyle.Render("none"))
			}
			for _, d := range deliveries {
				state := okStyle.Render("posted " + d.PostID)
				if !d.Delivered {
					state = failStyle.Render("failed: " + d.Error)
				}
				fmt.Fprintf(out, "  %s %s %s\n", dimStyle.Render(formatTime(d.AttemptedAt)), d.Title, state)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of deliveries to show")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
