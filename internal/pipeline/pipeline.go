// Package pipeline runs the rules and external tools that apply to one file.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/detent/checkformat/internal/classify"
	"github.com/detent/checkformat/internal/config"
	"github.com/detent/checkformat/internal/finding"
	"github.com/detent/checkformat/internal/rules"
	"github.com/detent/checkformat/internal/sentry"
	"github.com/detent/checkformat/internal/tool"
	"github.com/sirupsen/logrus"
)

// HandFixMessage follows structural findings that fix mode will not touch.
const HandFixMessage = "This cannot be automatically corrected. Please fix by hand."

// CleanCache remembers files that passed a check run.
type CleanCache interface {
	Key(path string, content []byte) string
	IsClean(key string) (bool, error)
}

// Result is the outcome of one file. Findings keep the order the steps ran in.
type Result struct {
	Record   classify.FileRecord `json:"-"`
	Findings []finding.Finding   `json:"findings"`
	Modified bool                `json:"modified,omitempty"`

	// Cached is set when a previous clean result was reused.
	Cached bool `json:"cached,omitempty"`
	// CacheKey is set for files that passed a check and may be recorded.
	CacheKey string `json:"-"`
}

// Pipeline is shared by every worker. It holds no per-file state.
type Pipeline struct {
	Mode       config.Mode
	Classifier *classify.Classifier
	Rules      *rules.Set
	Tools      *tool.Toolset
	Cache      CleanCache
	Logger     logrus.FieldLogger
}

// New builds a pipeline from the run configuration.
func New(cfg *config.Config, tools *tool.Toolset, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		Mode:       cfg.Mode,
		Classifier: classify.New(cfg.ClassifierOptions()),
		Rules:      rules.NewSet(cfg.RuleOptions()),
		Tools:      tools,
		Logger:     logger,
	}
}

// RunOnFile classifies path and, when it is in scope, checks or fixes it.
// A panic while processing is recovered into internal findings so the rest of
// the batch is unaffected.
func (p *Pipeline) RunOnFile(ctx context.Context, path string) (res Result) {
	rec := p.Classifier.Classify(path)
	res.Record = rec
	if rec.Excluded || !rec.InScope {
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			sentry.CaptureFilePanic(rec.Path, r)
			trace := fmt.Sprintf("panic: %v\n%s", r, debug.Stack())
			res.Findings = append(res.Findings, finding.FromTrace(rec.Path, trace)...)
		}
	}()

	log := p.Logger.WithFields(logrus.Fields{"path": rec.Path, "category": rec.Category})
	log.Debug("processing file")

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		res.Findings = []finding.Finding{finding.New(finding.KindInternal, rec.Path,
			fmt.Sprintf("ERROR: unable to read file: %v", err))}
		return res
	}

	if p.Mode == config.ModeFix {
		res.Findings, res.Modified = p.fix(ctx, rec, string(data))
		if res.Modified {
			log.Info("rewrote file")
		}
		return res
	}

	var key string
	if p.Cache != nil {
		key = p.Cache.Key(rec.Path, data)
		clean, cacheErr := p.Cache.IsClean(key)
		if cacheErr != nil {
			log.WithError(cacheErr).Warn("cache lookup failed")
		} else if clean {
			log.Debug("unchanged since last clean check")
			res.Cached = true
			return res
		}
	}

	res.Findings = p.check(ctx, rec, string(data))
	if len(res.Findings) == 0 {
		res.CacheKey = key
	}
	return res
}

func (p *Pipeline) structural(rec classify.FileRecord, content string) []finding.Finding {
	b := rec.Category.Behavior()
	fc := rules.FileContext{Path: rec.Path, Content: content}

	var out []finding.Finding
	if b.NamespaceRule {
		out = append(out, p.Rules.Namespace.Check(fc)...)
	}
	if b.SourceDepsRule {
		out = append(out, p.Rules.SourceDeps.Check(fc)...)
	}
	if b.BuildDepsRule {
		out = append(out, p.Rules.BuildDeps.Check(fc)...)
	}
	return out
}

func (p *Pipeline) check(ctx context.Context, rec classify.FileRecord, content string) []finding.Finding {
	b := rec.Category.Behavior()
	t := p.Tools

	findings := p.structural(rec, content)
	if b.LineRules {
		findings = append(findings, p.Rules.CheckLines(rec.Path, content)...)
	}
	if b.BuildTools {
		if !rec.IsAPI {
			findings = append(findings, t.BuildFixer.DiffCheck(ctx, t.Runner, rec.Path, content)...)
		}
		findings = append(findings, t.BuildFormatter.DiffCheck(ctx, t.Runner, rec.Path, content)...)
	}
	if b.HeaderOrder {
		findings = append(findings, t.HeaderOrder.DiffCheck(ctx, t.Runner, rec.Path, content)...)
	}
	if b.CodeFormatter {
		findings = append(findings, t.CodeFormatter.DiffCheck(ctx, t.Runner, rec.Path, content)...)
	}
	return findings
}

func (p *Pipeline) fix(ctx context.Context, rec classify.FileRecord, content string) ([]finding.Finding, bool) {
	b := rec.Category.Behavior()
	if b.BuildTools {
		return p.fixBuild(ctx, rec, content)
	}

	modified := false
	if b.LineRules {
		if fixed, changed := p.Rules.FixLines(content); changed {
			if err := writeFile(rec.Path, fixed); err != nil {
				return []finding.Finding{finding.New(finding.KindInternal, rec.Path, "ERROR: "+err.Error())}, false
			}
			content = fixed
			modified = true
		}
	}

	if structural := p.structural(rec, content); len(structural) > 0 {
		return append(structural, finding.New(finding.KindStructural, rec.Path, HandFixMessage)), modified
	}

	t := p.Tools
	var findings []finding.Finding
	ran := false
	if b.HeaderOrder {
		findings = append(findings, t.HeaderOrder.Rewrite(ctx, t.Runner, rec.Path)...)
		ran = true
	}
	if b.CodeFormatter {
		findings = append(findings, t.CodeFormatter.Rewrite(ctx, t.Runner, rec.Path)...)
		ran = true
	}
	if ran && changedOnDisk(rec.Path, content) {
		modified = true
	}
	return findings, modified
}

// fixBuild rewrites a build manifest with the fixer then the formatter, and
// reports dependency violations in the result.
func (p *Pipeline) fixBuild(ctx context.Context, rec classify.FileRecord, content string) ([]finding.Finding, bool) {
	t := p.Tools
	if !rec.IsAPI {
		if fs := t.BuildFixer.Rewrite(ctx, t.Runner, rec.Path); len(fs) > 0 {
			return fs, changedOnDisk(rec.Path, content)
		}
	}
	if fs := t.BuildFormatter.Rewrite(ctx, t.Runner, rec.Path); len(fs) > 0 {
		return fs, changedOnDisk(rec.Path, content)
	}

	after := content
	if data, err := os.ReadFile(rec.Path); err == nil {
		after = string(data)
	}
	modified := after != content

	if structural := p.structural(rec, after); len(structural) > 0 {
		return append(structural, finding.New(finding.KindStructural, rec.Path, HandFixMessage)), modified
	}
	return nil, modified
}

func changedOnDisk(path, before string) bool {
	data, err := os.ReadFile(path)
	return err == nil && string(data) != before
}
