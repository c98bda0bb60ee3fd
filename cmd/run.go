package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/detent/checkformat/internal/cache"
	"github.com/detent/checkformat/internal/config"
	"github.com/detent/checkformat/internal/lock"
	"github.com/detent/checkformat/internal/logging"
	"github.com/detent/checkformat/internal/output"
	"github.com/detent/checkformat/internal/pipeline"
	"github.com/detent/checkformat/internal/runner"
	"github.com/detent/checkformat/internal/sentry"
	"github.com/detent/checkformat/internal/signal"
	"github.com/detent/checkformat/internal/tool"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func overrides(mode config.Mode, args []string) config.Overrides {
	o := config.Overrides{
		Mode:                mode,
		ConfigPath:          configPath,
		AddExcludedPrefixes: addExcludedPrefixes,
		NumWorkers:          numWorkers,
		APIPrefix:           apiPrefix,
		OutputFormat:        outputFormat,
		UseCache:            useCache,
		CacheDir:            cacheDir,
		Verbose:             verbose,
	}
	if len(args) == 1 {
		o.Target = args[0]
	}
	return o
}

func runFormat(cmd *cobra.Command, mode config.Mode, args []string) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	// Existing environment variables win over .env entries.
	envErr := godotenv.Load()

	cfg, err := config.Load(overrides(mode, args), os.Getenv)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, stderr)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.WithError(envErr).Warn("ignoring .env file")
	}
	if cfg.Source != "" {
		logger.WithField("config", cfg.Source).Debug("loaded config file")
	}
	sentry.SetTag("mode", string(mode))

	if mode == config.ModeFix {
		l, lockErr := lock.Acquire(lockRoot(cfg.Target))
		if lockErr != nil {
			return lockErr
		}
		defer func() {
			if releaseErr := l.Release(); releaseErr != nil {
				logger.WithError(releaseErr).Warn("releasing fix lock")
			}
		}()
	}

	tools := tool.NewToolset(&tool.ExecRunner{Timeout: cfg.ToolTimeout, Logger: logger}, cfg.Tools)
	p := pipeline.New(cfg, tools, logger)

	var store *cache.Store
	if cfg.UseCache && mode == config.ModeCheck {
		store, err = openCache(cfg)
		if err != nil {
			logger.WithError(err).Warn("cache disabled")
		} else {
			defer func() { _ = store.Close() }()
			logger.WithField("cache", store.Path()).Debug("using pass cache")
			p.Cache = store
		}
	}

	res, err := runner.Run(ctx, cfg, p, logger)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"files":    len(res.Files),
		"findings": res.FindingCount(),
		"duration": res.Duration,
	}).Info("run complete")

	if store != nil {
		if markErr := store.MarkClean(res.CleanEntries()); markErr != nil {
			logger.WithError(markErr).Warn("recording clean files")
		}
	}

	switch cfg.OutputFormat {
	case config.OutputJSON:
		if err := output.FormatJSON(stdout, res); err != nil {
			return fmt.Errorf("formatting JSON output: %w", err)
		}
	default:
		output.FormatText(stdout, res, styled(stdout))
	}

	if res.Cancelled {
		signal.PrintCancellationMessage(stderr, cmd.CommandPath())
		return &ExitError{Code: exitCodeCancelled}
	}
	if code := res.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// lockRoot is the directory a fix run claims.
func lockRoot(target string) string {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return filepath.Dir(target)
	}
	return target
}

func openCache(cfg *config.Config) (*cache.Store, error) {
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = cache.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return cache.Open(dir, cfg.Fingerprint())
}

// styled reports whether w is a color-capable terminal.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
