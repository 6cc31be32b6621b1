package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration for a watched root.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. Project config (.vigil.yaml at the watched root)
  3. Environment variables (VIGIL_*)`,
		Example: `  # Show effective configuration for the current directory
  vigil config

  # Show effective configuration for another root
  vigil config show /path/to/project

  # Print the config file path
  vigil config path`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	// Bare 'vigil config' behaves like 'vigil config show .'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, ".")
	}

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Show effective configuration (merged from all sources)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runConfigShow(cmd, root)
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path [path]",
		Short: "Print the project config file path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(absRoot, config.FileName))
			return err
		},
	}
}

func runConfigShow(cmd *cobra.Command, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), cfg.String())
	return err
}
