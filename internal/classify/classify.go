// Package classify decides from a path alone whether a file is checked and
// which category of rules and tools applies to it.
package classify

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Category selects the rules and tools the pipeline runs for a file.
type Category int

const (
	CategorySource Category = iota
	CategoryBuild
	CategoryDocs
	CategoryProtocol
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySource:
		return "source"
	case CategoryBuild:
		return "build"
	case CategoryDocs:
		return "docs"
	case CategoryProtocol:
		return "protocol"
	}
	return "unknown"
}

// Behavior lists the pipeline steps enabled for a category.
type Behavior struct {
	NamespaceRule  bool
	SourceDepsRule bool
	BuildDepsRule  bool
	LineRules      bool
	BuildTools     bool
	HeaderOrder    bool
	CodeFormatter  bool
}

var behaviors = map[Category]Behavior{
	CategorySource: {
		NamespaceRule:  true,
		SourceDepsRule: true,
		LineRules:      true,
		HeaderOrder:    true,
		CodeFormatter:  true,
	},
	CategoryBuild: {
		BuildDepsRule: true,
		BuildTools:    true,
	},
	CategoryDocs: {
		LineRules: true,
	},
	CategoryProtocol: {
		LineRules:     true,
		CodeFormatter: true,
	},
}

// Behavior returns the step table for the category.
func (c Category) Behavior() Behavior {
	return behaviors[c]
}

var (
	recognizedSuffixes = []string{".cc", ".h", "BUILD", "BUILD.bazel", ".md", ".rst", ".proto"}
	docsSuffixes       = []string{".md", ".rst"}
	protocolSuffix     = ".proto"
	buildBasenames     = map[string]bool{"BUILD": true, "BUILD.bazel": true}
	buildExtension     = ".BUILD"
)

// FileRecord holds the classification facts of one path. It is computed once
// and never modified.
type FileRecord struct {
	Path     string
	Excluded bool
	InScope  bool
	Category Category
	// IsAPI is only meaningful for build files.
	IsAPI bool
}

// Options configures a Classifier.
type Options struct {
	ExcludedPrefixes []string
	ExcludeGlobs     []string
	APIPrefix        string
}

// Classifier labels paths. It is safe for concurrent use.
type Classifier struct {
	prefixes  []string
	globs     []string
	apiPrefix string
}

// New returns a Classifier. Prefixes are normalized to the "./" form used by
// Normalize.
func New(opts Options) *Classifier {
	prefixes := make([]string, 0, len(opts.ExcludedPrefixes))
	for _, p := range opts.ExcludedPrefixes {
		if p == "" {
			continue
		}
		prefixes = append(prefixes, Normalize(p))
	}
	api := opts.APIPrefix
	if api != "" {
		api = Normalize(api)
	}
	return &Classifier{
		prefixes:  prefixes,
		globs:     append([]string(nil), opts.ExcludeGlobs...),
		apiPrefix: api,
	}
}

// Normalize converts a path to the slash-separated "./"-prefixed form that
// prefixes are matched against.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return "./"
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "./") {
		return p
	}
	return "./" + p
}

// Classify labels a single path.
func (c *Classifier) Classify(p string) FileRecord {
	p = Normalize(p)
	rec := FileRecord{Path: p}

	if c.isExcluded(p) {
		rec.Excluded = true
		return rec
	}
	if !hasAnySuffix(p, recognizedSuffixes) {
		return rec
	}

	rec.InScope = true
	switch {
	case IsBuildFile(p):
		rec.Category = CategoryBuild
		rec.IsAPI = c.apiPrefix != "" && strings.HasPrefix(p, c.apiPrefix)
	case hasAnySuffix(p, docsSuffixes):
		rec.Category = CategoryDocs
	case strings.HasSuffix(p, protocolSuffix):
		rec.Category = CategoryProtocol
	default:
		rec.Category = CategorySource
	}
	return rec
}

// ExcludedDir reports whether every file below dir is excluded, letting a
// walker skip the subtree.
func (c *Classifier) ExcludedDir(dir string) bool {
	dir = strings.TrimSuffix(Normalize(dir), "/") + "/"
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(dir, prefix) {
			return true
		}
	}
	return false
}

func (c *Classifier) isExcluded(p string) bool {
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	rel := strings.TrimPrefix(p, "./")
	for _, g := range c.globs {
		// Patterns are validated when the configuration is loaded.
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// IsBuildFile reports whether the basename names a build manifest.
func IsBuildFile(p string) bool {
	base := path.Base(filepath.ToSlash(p))
	return buildBasenames[base] || strings.HasSuffix(base, buildExtension)
}

func hasAnySuffix(p string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	return false
}
