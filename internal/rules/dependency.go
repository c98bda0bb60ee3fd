package rules

import (
	"strings"

	"github.com/detent/checkformat/internal/finding"
)

// Default remediation messages for direct protobuf references.
const (
	BuildDependencyMessage  = "unexpected direct external dependency on protobuf, use //source/common/protobuf instead."
	SourceDependencyMessage = "unexpected direct dependency on google.protobuf, use the definitions in common/protobuf/protobuf.h instead."
)

// DependencyRule flags direct references to a disallowed external module
// outside a small set of allowlisted paths.
type DependencyRule struct {
	name      string
	patterns  []string
	allowlist []string
	message   string
}

// NewBuildDependencyRule checks build manifests for a direct protobuf dependency.
func NewBuildDependencyRule(allowlist []string) *DependencyRule {
	return &DependencyRule{
		name:      "build-dependency",
		patterns:  []string{`"protobuf"`},
		allowlist: allowlist,
		message:   BuildDependencyMessage,
	}
}

// NewSourceDependencyRule checks sources for direct protobuf includes or namespace use.
func NewSourceDependencyRule(allowlist []string) *DependencyRule {
	return &DependencyRule{
		name:      "source-dependency",
		patterns:  []string{`"google/protobuf`, "google::protobuf"},
		allowlist: allowlist,
		message:   SourceDependencyMessage,
	}
}

// Name implements Rule.
func (r *DependencyRule) Name() string { return r.name }

// Allowed reports whether path may reference the module directly.
func (r *DependencyRule) Allowed(path string) bool {
	for _, segment := range r.allowlist {
		if segment != "" && strings.Contains(path, segment) {
			return true
		}
	}
	return false
}

// Check implements Rule. Every matching line is reported with the
// remediation message.
func (r *DependencyRule) Check(fc FileContext) []finding.Finding {
	if r.Allowed(fc.Path) || !r.containsAny(fc.Content) {
		return nil
	}

	var out []finding.Finding
	for i, line := range splitLines(fc.Content) {
		if r.containsAny(line) {
			out = append(out, finding.AtLine(finding.KindStructural, fc.Path, i+1, r.message))
		}
	}
	return out
}

func (r *DependencyRule) containsAny(s string) bool {
	for _, p := range r.patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
