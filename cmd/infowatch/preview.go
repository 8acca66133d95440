package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pders01/infowatch/internal/extract"
	"github.com/pders01/infowatch/internal/notify"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show what would be extracted and posted, without changing state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.load(noStores)
			if err != nil {
				return err
			}
			defer rt.Close()

			w, err := rt.watcher(notify.NewLogNotifier(rt.log.Named("notify")))
			if err != nil {
				return err
			}
			doc, err := w.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := w.Extractor().Run(doc)
			if len(res.Articles) == 0 {
				fmt.Fprintln(out, failStyle.Render("No articles found."))
				printDiagnostics(out, w.Extractor().Diagnose(doc))
				return nil
			}

			fmt.Fprintf(out, "%s %d articles via %s\n\n",
				headingStyle.Render("Found"), len(res.Articles), res.Stage)
			for i, a := range res.Articles {
				fmt.Fprintf(out, "%s %s\n", headingStyle.Render(fmt.Sprintf("%d.", i+1)), a.Title)
				fmt.Fprintf(out, "   %s %s\n", labelStyle.Render("url: "), a.URL)
				if a.Date != "" {
					fmt.Fprintf(out, "   %s %s\n", labelStyle.Render("date:"), a.Date)
				}
				msg := w.Composer().Compose(a)
				fmt.Fprintln(out, messageStyle.Render(msg))
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("   %d characters", utf8.RuneCountInString(msg))))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func printDiagnostics(w io.Writer, d extract.Diagnostics) {
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("marker elements:"), d.MarkerElements)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render(fmt.Sprintf("classes containing %q:", d.Hint)), d.HintElements)
	for _, s := range d.ClassSamples {
		fmt.Fprintf(w, "   %s %s\n", dimStyle.Render(strings.Join(s.Classes, " ")), s.Text)
	}
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("links matching pattern:"), d.PatternLinks)
	for _, s := range d.LinkSamples {
		fmt.Fprintf(w, "   %s -> %s\n", s.Text, dimStyle.Render(s.Href))
	}
}
