package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/detent/checkformat/internal/diff"
	"github.com/detent/checkformat/internal/finding"
)

// Adapter describes how to drive one external tool in its two modes.
type Adapter struct {
	Label  string
	Binary string

	// CheckArgs builds the diff-check argument vector. out is a scratch
	// file path when WritesFile is set and empty otherwise.
	CheckArgs func(path, out string) []string
	// PipeContent sends the file content on stdin in diff-check mode.
	PipeContent bool
	// WritesFile reads the tool output from the scratch file instead of stdout.
	WritesFile bool

	RewriteArgs func(path string) []string
}

// successful reports whether the exit status is one the diff step accepts.
func successful(code int) bool {
	return code == 0 || code == 1
}

// DiffCheck runs the tool, compares its output with original and reports one
// finding per line number of each differing hunk.
func (a *Adapter) DiffCheck(ctx context.Context, runner Runner, path, original string) []finding.Finding {
	var out string
	if a.WritesFile {
		tmp, err := os.CreateTemp("", "check-format-*")
		if err != nil {
			return []finding.Finding{finding.New(finding.KindTool, path,
				fmt.Sprintf("ERROR: something went wrong while preparing %s: %v", a.Label, err))}
		}
		out = tmp.Name()
		_ = tmp.Close()
		defer func() { _ = os.Remove(out) }()
	}

	inv := Invocation{Name: a.Binary, Args: a.CheckArgs(path, out)}
	if a.PipeContent {
		inv.Stdin = []byte(original)
	}

	res, err := runner.Run(ctx, inv)
	if err != nil || !successful(res.ExitCode) {
		return []finding.Finding{somethingWentWrong(path, inv)}
	}

	formatted := res.Stdout
	if a.WritesFile {
		data, readErr := os.ReadFile(out) //nolint:gosec // scratch file created above
		if readErr != nil {
			return []finding.Finding{somethingWentWrong(path, inv)}
		}
		formatted = string(data)
	}

	hunks := diff.Compute(original, formatted)
	if len(hunks) == 0 {
		return nil
	}

	// A whole-file finding first, in case no line numbers can be cited.
	findings := []finding.Finding{finding.New(finding.KindTool, path,
		fmt.Sprintf("%s check failed for file: %s", a.Label, path))}
	headers := make([]string, len(hunks))
	for i, h := range hunks {
		headers[i] = h.Header()
	}
	for _, n := range diff.AffectedLines(headers) {
		findings = append(findings, finding.AtLine(finding.KindTool, path, n, ""))
	}
	return findings
}

// Rewrite lets the tool modify the file in place.
func (a *Adapter) Rewrite(ctx context.Context, runner Runner, path string) []finding.Finding {
	inv := Invocation{Name: a.Binary, Args: a.RewriteArgs(path)}
	res, err := runner.Run(ctx, inv)
	if err != nil || res.ExitCode != 0 {
		return []finding.Finding{finding.New(finding.KindTool, path,
			fmt.Sprintf("%s rewrite failed for file: %s", a.Label, path))}
	}
	return nil
}

func somethingWentWrong(path string, inv Invocation) finding.Finding {
	return finding.New(finding.KindTool, path, "ERROR: something went wrong while executing: "+inv.String())
}
