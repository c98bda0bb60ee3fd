package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/detent/checkformat/internal/finding"
)

// NamespaceRule requires a top-level namespace declaration or an explicit
// opt-out marker.
type NamespaceRule struct {
	namespace string
	optOut    string
	pattern   *regexp.Regexp
}

// NewNamespaceRule returns a rule requiring `namespace <ns> {`. The opt-out
// marker is NOLINT(namespace-<lowercase ns>).
func NewNamespaceRule(namespace string) *NamespaceRule {
	return &NamespaceRule{
		namespace: namespace,
		optOut:    fmt.Sprintf("NOLINT(namespace-%s)", strings.ToLower(namespace)),
		pattern:   regexp.MustCompile(`(?m)^\s*namespace\s+` + regexp.QuoteMeta(namespace) + `\s*\{`),
	}
}

// Name implements Rule.
func (r *NamespaceRule) Name() string { return "namespace" }

// Check implements Rule.
func (r *NamespaceRule) Check(fc FileContext) []finding.Finding {
	if r.pattern.MatchString(fc.Content) || strings.Contains(fc.Content, r.optOut) {
		return nil
	}
	return []finding.Finding{finding.New(finding.KindStructural, fc.Path,
		fmt.Sprintf("Unable to find %s namespace or %s for file: %s", r.namespace, r.optOut, fc.Path))}
}
