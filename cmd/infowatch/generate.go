package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pders01/infowatch/internal/config"
)

func newGenerateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config [path]",
		Short: "Write the default configuration file",
		Long: `Write the default configuration to path, or to
~/.config/infowatch/config.toml when no path is given. Credentials are never
written; set them in the environment or a .env file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("finding home directory: %w", err)
				}
				path = filepath.Join(home, ".config", "infowatch", "config.toml")
			}

			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
}
