package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/infowatch/internal/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every article seen so far",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(historyAndIndex)
			if err != nil {
				return err
			}
			defer rt.Close()

			var searcher search.Searcher
			switch {
			case rt.index != nil:
				searcher = rt.index
			case rt.history != nil:
				searcher = search.NewEngine(rt.history)
			default:
				return errors.New("search needs state.history_path or state.search_index to be set")
			}

			query := strings.Join(args, " ")
			results, err := searcher.Search(query, limit)
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "No articles match %q\n", query)
				return nil
			}
			for _, r := range results {
				a := r.Article
				line := a.Title
				if a.Date != "" {
					line += " " + dimStyle.Render("("+a.Date+")")
				}
				fmt.Fprintln(out, headingStyle.Render("•")+" "+line)
				fmt.Fprintf(out, "  %s\n", dimStyle.Render(a.URL))
			}
			if ds, ok := searcher.(search.DebugStatser); ok {
				if n, err := ds.DocCount(); err == nil {
					fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d of %d indexed articles", len(results), n)))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}
