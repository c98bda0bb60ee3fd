// Package tool invokes the external formatters and fixers and turns their
// output into findings.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Invocation is a single external process call. Args never pass through a shell.
type Invocation struct {
	Name  string
	Args  []string
	Stdin []byte
}

// String renders the command line for reports.
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Name
	}
	return inv.Name + " " + strings.Join(inv.Args, " ")
}

// Result is the buffered outcome of a process that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes invocations. A non-zero exit status is reported in Result;
// the error is reserved for processes that could not be run at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// waitDelay bounds how long output pipes are drained after a killed process
// exits, in case a grandchild still holds them open.
const waitDelay = 2 * time.Second

// ExecRunner runs invocations with os/exec.
type ExecRunner struct {
	// Timeout bounds each invocation; zero means no limit.
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...) //nolint:gosec // tool paths come from trusted configuration
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if inv.Stdin != nil {
		cmd.Stdin = bytes.NewReader(inv.Stdin)
	}
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %s: %w", inv.Name, err)
		}
		exitCode = exitErr.ExitCode()
	}

	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{
			"tool":     inv.Name,
			"args":     inv.Args,
			"exit":     exitCode,
			"duration": duration,
		}).Debug("tool invocation")
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}
