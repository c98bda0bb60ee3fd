package cmd

import (
	"github.com/detent/checkformat/internal/config"
	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix [target_path]",
	Short: "Rewrite files in place where violations can be corrected",
	Long: `Correct whitespace, include spelling and qualified names, then run the
header order normalizer and clang-format in rewrite mode. Build files are
rewritten by the build fixer and buildifier.

Namespace and dependency violations are reported but never rewritten; the exit
status is 1 when any remain. Only one fix run may operate on a tree at a time.`,
	Example: `  # Fix the whole tree
  check-format fix

  # Fix a single file
  check-format fix source/common/foo.cc`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFormat(cmd, config.ModeFix, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}
