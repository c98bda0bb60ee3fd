package finding

import (
	"fmt"
	"strings"
)

// Kind classifies a finding by how it can be resolved.
type Kind int

const (
	// KindContent is a line-level textual violation that fix mode corrects.
	KindContent Kind = iota
	// KindStructural is a namespace or dependency violation that must be fixed by hand.
	KindStructural
	// KindTool is an external tool mismatch or invocation failure.
	KindTool
	// KindInternal is a fault raised while processing a file.
	KindInternal
)

// String returns the name used in reports.
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindStructural:
		return "structural"
	case KindTool:
		return "tool"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// MarshalText lets Kind appear by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{KindContent, KindStructural, KindTool, KindInternal} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown finding kind %q", text)
}

// Finding is a single reported violation. Line is 1-based; zero means the
// finding applies to the whole file.
type Finding struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    Kind   `json:"kind"`
}

// New returns a whole-file finding.
func New(kind Kind, path, message string) Finding {
	return Finding{Path: path, Message: message, Kind: kind}
}

// AtLine returns a finding tied to a 1-based line number.
func AtLine(kind Kind, path string, line int, message string) Finding {
	return Finding{Path: path, Line: line, Message: message, Kind: kind}
}

// String renders the finding the way reports print it.
func (f Finding) String() string {
	switch {
	case f.Line > 0 && f.Message != "":
		return fmt.Sprintf("%s:%d: %s", f.Path, f.Line, f.Message)
	case f.Line > 0:
		return fmt.Sprintf("  %s:%d", f.Path, f.Line)
	default:
		return f.Message
	}
}

// Count returns how many findings in fs have the given kind.
func Count(fs []Finding, kind Kind) int {
	n := 0
	for _, f := range fs {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// FromTrace converts a multi-line diagnostic trace into internal findings,
// one per non-empty line.
func FromTrace(path, trace string) []Finding {
	var out []Finding
	for _, line := range strings.Split(trace, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, New(KindInternal, path, line))
	}
	return out
}
