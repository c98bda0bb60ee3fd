package output

import (
	"encoding/json"
	"io"

	"github.com/detent/checkformat/internal/finding"
	"github.com/detent/checkformat/internal/runner"
)

// Report is the JSON document written by --output json.
type Report struct {
	Mode         string       `json:"mode"`
	Passed       bool         `json:"passed"`
	ExitCode     int          `json:"exit_code"`
	Cancelled    bool         `json:"cancelled,omitempty"`
	FilesChecked int          `json:"files_checked"`
	FindingCount int          `json:"finding_count"`
	DurationMS   int64        `json:"duration_ms"`
	Files        []FileReport `json:"files"`
}

// FileReport lists one file that has findings or was rewritten.
type FileReport struct {
	Path     string            `json:"path"`
	Category string            `json:"category"`
	Modified bool              `json:"modified,omitempty"`
	Findings []finding.Finding `json:"findings,omitempty"`
}

// NewReport builds the JSON document for res.
func NewReport(res *runner.RunResult) Report {
	r := Report{
		Mode:         string(res.Mode),
		Passed:       res.ExitCode() == 0,
		ExitCode:     res.ExitCode(),
		Cancelled:    res.Cancelled,
		FilesChecked: len(res.Files),
		FindingCount: res.FindingCount(),
		DurationMS:   res.Duration.Milliseconds(),
		Files:        []FileReport{},
	}
	for _, f := range res.Files {
		if len(f.Findings) == 0 && !f.Modified {
			continue
		}
		r.Files = append(r.Files, FileReport{
			Path:     f.Record.Path,
			Category: f.Record.Category.String(),
			Modified: f.Modified,
			Findings: f.Findings,
		})
	}
	return r
}

// FormatJSON writes res as indented JSON.
// Returns error if JSON marshaling or writing fails.
func FormatJSON(w io.Writer, res *runner.RunResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewReport(res))
}
