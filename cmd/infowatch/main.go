package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Version is the version of the application, set at build time
var Version = "dev"

type rootOptions struct {
	configPath string
	quiet      bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "infowatch",
		Short:         "Watch an announcement page and post new entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default is ./infowatch.toml or ~/.config/infowatch/config.toml)")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "skip startup banner")

	root.AddCommand(
		newRunCmd(opts),
		newPreviewCmd(opts),
		newStatusCmd(opts),
		newSearchCmd(opts),
		newGenerateConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "infowatch %s\n", Version)
			fmt.Fprintln(out, "Announcement page watcher")
			fmt.Fprintln(out, "github.com/pders01/infowatch")
		},
	}
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFA86B")).
			Padding(0, 1)
)

func showBanner(w io.Writer) {
	colors := []lipgloss.Color{
		lipgloss.Color("#FF6B6B"),
		lipgloss.Color("#FFA86B"),
		lipgloss.Color("#95E1D3"),
		lipgloss.Color("#4ECDC4"),
	}

	lines := []string{
		"╻┏┓╻┏━╸┏━┓╻ ╻┏━┓╺┳╸┏━╸╻ ╻",
		"┃┃┗┫┣╸ ┃ ┃┃╻┃┣━┫ ┃ ┃  ┣━┫",
		"╹╹ ╹╹  ┗━┛┗┻┛╹ ╹ ╹ ┗━╸╹ ╹",
		"",
		"announcement watcher " + Version,
	}

	var colored []string
	for i, line := range lines {
		if line == "" {
			colored = append(colored, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(colors[i%len(colors)]).
			Bold(i < 3)
		colored = append(colored, style.Render(line))
	}

	border := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#4ECDC4")).
		Padding(1, 3).
		MarginTop(1)

	fmt.Fprintln(w, border.Render(lipgloss.JoinVertical(lipgloss.Center, colored...)))
}
