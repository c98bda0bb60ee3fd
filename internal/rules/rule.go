// Package rules holds the content rules applied to each file: structural
// rules that are reported only, and line rules that fix mode rewrites.
package rules

import (
	"strings"

	"github.com/detent/checkformat/internal/finding"
)

// FileContext is the input every rule sees. Rules never read the filesystem.
type FileContext struct {
	Path    string
	Content string
}

// Rule checks a whole file.
type Rule interface {
	Name() string
	Check(fc FileContext) []finding.Finding
}

// LineRule checks and fixes a single line. FixLine must return the line
// unchanged when Check reports nothing for it.
type LineRule interface {
	Name() string
	CheckLine(line string) []string
	FixLine(line string) string
}

// splitLines splits content into lines without their terminators. A trailing
// newline does not produce an extra empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
