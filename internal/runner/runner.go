// Package runner walks the target, dispatches each file to the pipeline on a
// bounded worker pool and aggregates the results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/detent/checkformat/internal/cache"
	"github.com/detent/checkformat/internal/classify"
	"github.com/detent/checkformat/internal/config"
	"github.com/detent/checkformat/internal/finding"
	"github.com/detent/checkformat/internal/pipeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrTargetNotFound is returned when the target path does not exist.
var ErrTargetNotFound = errors.New("target not found")

// Processor handles a single file.
type Processor interface {
	RunOnFile(ctx context.Context, path string) pipeline.Result
}

// RunResult aggregates every processed file in submission order.
type RunResult struct {
	Mode      config.Mode       `json:"mode"`
	Files     []pipeline.Result `json:"-"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Duration  time.Duration     `json:"-"`
}

// FindingCount returns the number of findings across all files.
func (r *RunResult) FindingCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Findings)
	}
	return n
}

// HasFindings reports whether any file produced a finding.
func (r *RunResult) HasFindings() bool {
	return r.FindingCount() > 0
}

// ExitCode maps the result to a process status. Check mode fails on any
// finding. Fix mode fails only on what it could not correct: structural and
// internal findings. Tool rewrite failures are reported without failing.
func (r *RunResult) ExitCode() int {
	if r.Mode == config.ModeCheck {
		if r.HasFindings() {
			return 1
		}
		return 0
	}
	for _, f := range r.Files {
		if finding.Count(f.Findings, finding.KindStructural) > 0 ||
			finding.Count(f.Findings, finding.KindInternal) > 0 {
			return 1
		}
	}
	return 0
}

// CleanEntries lists files that passed and can be recorded in the cache.
func (r *RunResult) CleanEntries() []cache.Entry {
	var entries []cache.Entry
	for _, f := range r.Files {
		if f.CacheKey != "" {
			entries = append(entries, cache.Entry{Key: f.CacheKey, Path: f.Record.Path})
		}
	}
	return entries
}

// ModifiedCount returns how many files fix mode rewrote.
func (r *RunResult) ModifiedCount() int {
	n := 0
	for _, f := range r.Files {
		if f.Modified {
			n++
		}
	}
	return n
}

// Run processes cfg.Target. A file target is processed directly; a directory
// is walked with excluded subtrees pruned. Once ctx is cancelled no further
// files are dispatched, but files already started run to completion.
func Run(ctx context.Context, cfg *config.Config, p Processor, logger logrus.FieldLogger) (*RunResult, error) {
	start := time.Now()

	paths, err := collect(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("files", len(paths)).Debug("dispatching files")

	workers := cfg.NumWorkers
	if workers < 1 {
		workers = 1
	}

	results := make([]pipeline.Result, len(paths))
	started := make([]bool, len(paths))
	cancelled := false

	// Started files finish even after cancellation.
	taskCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		started[i] = true
		g.Go(func() error {
			results[i] = p.RunOnFile(taskCtx, path)
			return nil
		})
	}
	_ = g.Wait()

	if !cancelled && ctx.Err() != nil {
		cancelled = true
	}

	res := &RunResult{Mode: cfg.Mode, Cancelled: cancelled}
	for i := range results {
		if !started[i] || !results[i].Record.InScope {
			continue
		}
		res.Files = append(res.Files, results[i])
	}
	res.Duration = time.Since(start)
	return res, nil
}

// collect returns the files to process. Directory walks skip excluded
// subtrees and files outside the recognized set.
func collect(cfg *config.Config, logger logrus.FieldLogger) ([]string, error) {
	target := cfg.Target
	if target == "" {
		target = "."
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
		}
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	classifier := classify.New(cfg.ClassifierOptions())
	var paths []string
	walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == target {
				return err
			}
			logger.WithError(err).WithField("path", path).Warn("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != target && classifier.ExcludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rec := classifier.Classify(path)
		if rec.Excluded || !rec.InScope {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", target, walkErr)
	}
	return paths, nil
}
