package rules

import (
	"strings"

	"github.com/detent/checkformat/internal/finding"
)

// Options configures the default rule set.
type Options struct {
	Namespace         string
	ProtobufAllowlist []string
	IncludeDirs       []string
	Remaps            []Remap
}

// Set is the ordered collection of rules applied to a file.
type Set struct {
	Namespace  *NamespaceRule
	SourceDeps *DependencyRule
	BuildDeps  *DependencyRule
	Lines      []LineRule
}

// NewSet builds the rule set in its fixed order.
func NewSet(opts Options) *Set {
	remaps := opts.Remaps
	if remaps == nil {
		remaps = DefaultRemaps
	}
	return &Set{
		Namespace:  NewNamespaceRule(opts.Namespace),
		SourceDeps: NewSourceDependencyRule(opts.ProtobufAllowlist),
		BuildDeps:  NewBuildDependencyRule(opts.ProtobufAllowlist),
		Lines: []LineRule{
			DoubleSpaceRule{},
			NewAngleIncludeRule(opts.IncludeDirs),
			NewQualifiedNameRule(remaps),
		},
	}
}

// CheckLines streams the content line by line and reports every line rule
// violation with its 1-based line number.
func (s *Set) CheckLines(path, content string) []finding.Finding {
	var out []finding.Finding
	for i, line := range splitLines(content) {
		for _, r := range s.Lines {
			for _, msg := range r.CheckLine(line) {
				out = append(out, finding.AtLine(finding.KindContent, path, i+1, msg))
			}
		}
	}
	return out
}

// FixLines applies every line rule to each line and reports whether the
// content changed. Line terminators are preserved.
func (s *Set) FixLines(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	changed := false
	for i, line := range lines {
		fixed := line
		for _, r := range s.Lines {
			fixed = r.FixLine(fixed)
		}
		if fixed != line {
			lines[i] = fixed
			changed = true
		}
	}
	if !changed {
		return content, false
	}
	return strings.Join(lines, "\n"), true
}
