package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/detent/checkformat/internal/signal"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const brandingColor = "42"

var brandingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(brandingColor))

var (
	// Global flags shared by check and fix
	configPath          string
	addExcludedPrefixes []string
	numWorkers          int
	apiPrefix           string
	outputFormat        string
	useCache            bool
	cacheDir            string
	verbose             bool
)

var rootCmd = &cobra.Command{
	Use:   "check-format",
	Short: "Check or fix source formatting across a tree",
	Long: `check-format walks a source tree and validates every recognized file
against the project's formatting rules: namespace declarations, direct
protobuf dependencies, whitespace and include spelling, and the output of
clang-format, buildifier, the build fixer and the header order normalizer.

Run "check-format check" in CI and "check-format fix" locally to rewrite
what can be corrected automatically.

Tool binaries are taken from CLANG_FORMAT, BUILDIFIER_BIN, BUILD_FIXER and
HEADER_ORDER when set. A .env file in the working directory is loaded first.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute() error {
	ctx := signal.SetupSignalHandler(context.Background())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default .check-format.yaml when present)")
	flags.StringSliceVar(&addExcludedPrefixes, "add-excluded-prefixes", nil, "exclude additional path prefixes")
	flags.IntVarP(&numWorkers, "num-workers", "j", 0, "number of files processed in parallel (default: one per core)")
	flags.StringVar(&apiPrefix, "api-prefix", "", "path of the API tree (default ./api/)")
	flags.StringVarP(&outputFormat, "output", "o", "", "output format (text, json)")
	flags.BoolVar(&useCache, "cache", false, "skip files that passed a previous check unchanged")
	flags.StringVar(&cacheDir, "cache-dir", "", "cache location (default: user cache directory)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every file and tool invocation")

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n", brandingStyle.Render("check-format v{{.Version}}")))
}
