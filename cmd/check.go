package cmd

import (
	"github.com/detent/checkformat/internal/config"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [target_path]",
	Short: "Report formatting violations without changing files",
	Long: `Validate every in-scope file under target_path (default ".") or a single
file. Nothing is written. The exit status is 1 when any violation is found.`,
	Example: `  # Check the whole tree
  check-format check

  # Check one directory with eight workers
  check-format check source/common -j 8

  # Skip files unchanged since the last clean check
  check-format check --cache

  # Machine-readable report
  check-format check --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFormat(cmd, config.ModeCheck, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}
