// Package config builds the immutable run configuration from defaults, an
// optional YAML file, the environment and command-line overrides.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/detent/checkformat/internal/classify"
	"github.com/detent/checkformat/internal/rules"
	"github.com/detent/checkformat/internal/tool"
	"github.com/goccy/go-yaml"
)

// Mode selects between validation and in-place rewriting.
type Mode string

const (
	ModeCheck Mode = "check"
	ModeFix   Mode = "fix"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = ".check-format.yaml"

// Environment variables that select tool binaries and the log level.
const (
	EnvCodeFormatter  = "CLANG_FORMAT"
	EnvBuildFormatter = "BUILDIFIER_BIN"
	EnvBuildFixer     = "BUILD_FIXER"
	EnvHeaderOrder    = "HEADER_ORDER"
	EnvLogLevel       = "CHECK_FORMAT_LOG_LEVEL"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

var (
	// DefaultExcludedPrefixes cover generated code, vendored code, build
	// output, VCS metadata and the tool's own fixtures.
	DefaultExcludedPrefixes = []string{
		"./generated/", "./thirdparty/", "./build", "./.git/",
		"./bazel-", "./bazel/external", "./.cache",
		"./tools/testdata/check_format/",
	}

	// DefaultProtobufAllowlist names path segments that may use protobuf directly.
	DefaultProtobufAllowlist = []string{"ci/prebuilt", "source/common/protobuf", "api/test"}

	// DefaultIncludeDirs are the project's own top-level include directories.
	DefaultIncludeDirs = []string{"envoy", "common", "source", "exe", "server", "client", "test"}
)

const (
	DefaultAPIPrefix = "./api/"
	DefaultNamespace = "Envoy"
	DefaultLogLevel  = "warn"
)

// Config is built once by the entry point and shared read-only by every task.
type Config struct {
	Mode   Mode
	Target string

	ExcludedPrefixes  []string
	ExcludeGlobs      []string
	APIPrefix         string
	Namespace         string
	ProtobufAllowlist []string
	IncludeDirs       []string

	Tools       tool.Paths
	ToolTimeout time.Duration
	NumWorkers  int

	OutputFormat string
	UseCache     bool
	CacheDir     string
	LogLevel     string

	// Source is the config file that was read, if any.
	Source string
}

// File is the on-disk YAML layout.
type File struct {
	ExcludedPrefixes  []string   `yaml:"excluded_prefixes"`
	ExcludeGlobs      []string   `yaml:"exclude_globs"`
	APIPrefix         string     `yaml:"api_prefix"`
	Namespace         string     `yaml:"namespace"`
	ProtobufAllowlist []string   `yaml:"protobuf_allowlist"`
	IncludeDirs       []string   `yaml:"include_dirs"`
	Tools             tool.Paths `yaml:"tools"`
	ToolTimeout       string     `yaml:"tool_timeout"`
	NumWorkers        int        `yaml:"num_workers"`
}

// Overrides carries command-line values. Zero values mean "not set".
type Overrides struct {
	Mode                Mode
	Target              string
	ConfigPath          string
	AddExcludedPrefixes []string
	NumWorkers          int
	APIPrefix           string
	OutputFormat        string
	UseCache            bool
	CacheDir            string
	Verbose             bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:              ModeCheck,
		Target:            ".",
		ExcludedPrefixes:  append([]string(nil), DefaultExcludedPrefixes...),
		APIPrefix:         DefaultAPIPrefix,
		Namespace:         DefaultNamespace,
		ProtobufAllowlist: append([]string(nil), DefaultProtobufAllowlist...),
		IncludeDirs:       append([]string(nil), DefaultIncludeDirs...),
		Tools:             tool.DefaultPaths,
		NumWorkers:        runtime.GOMAXPROCS(0),
		OutputFormat:      OutputText,
		LogLevel:          DefaultLogLevel,
	}
}

// Load resolves the configuration: defaults, then the config file, then the
// environment read through getenv, then overrides.
func Load(o Overrides, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	path := o.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	f, err := readFile(path)
	switch {
	case err == nil:
		if err := cfg.applyFile(f); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file; defaults apply.
	default:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.applyEnv(getenv)
	cfg.applyOverrides(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &f, nil
}

func (c *Config) applyFile(f *File) error {
	c.ExcludedPrefixes = append(c.ExcludedPrefixes, f.ExcludedPrefixes...)
	c.ExcludeGlobs = append(c.ExcludeGlobs, f.ExcludeGlobs...)
	if f.APIPrefix != "" {
		c.APIPrefix = f.APIPrefix
	}
	if f.Namespace != "" {
		c.Namespace = f.Namespace
	}
	if f.ProtobufAllowlist != nil {
		c.ProtobufAllowlist = f.ProtobufAllowlist
	}
	if f.IncludeDirs != nil {
		c.IncludeDirs = f.IncludeDirs
	}
	setIfNotEmpty(&c.Tools.CodeFormatter, f.Tools.CodeFormatter)
	setIfNotEmpty(&c.Tools.BuildFormatter, f.Tools.BuildFormatter)
	setIfNotEmpty(&c.Tools.BuildFixer, f.Tools.BuildFixer)
	setIfNotEmpty(&c.Tools.HeaderOrder, f.Tools.HeaderOrder)
	if f.ToolTimeout != "" {
		d, err := time.ParseDuration(f.ToolTimeout)
		if err != nil {
			return fmt.Errorf("tool_timeout: %w", err)
		}
		c.ToolTimeout = d
	}
	if f.NumWorkers != 0 {
		c.NumWorkers = f.NumWorkers
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setIfNotEmpty(&c.Tools.CodeFormatter, getenv(EnvCodeFormatter))
	setIfNotEmpty(&c.Tools.BuildFormatter, getenv(EnvBuildFormatter))
	setIfNotEmpty(&c.Tools.BuildFixer, getenv(EnvBuildFixer))
	setIfNotEmpty(&c.Tools.HeaderOrder, getenv(EnvHeaderOrder))
	setIfNotEmpty(&c.LogLevel, getenv(EnvLogLevel))
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Mode != "" {
		c.Mode = o.Mode
	}
	setIfNotEmpty(&c.Target, o.Target)
	c.ExcludedPrefixes = append(c.ExcludedPrefixes, o.AddExcludedPrefixes...)
	if o.NumWorkers != 0 {
		c.NumWorkers = o.NumWorkers
	}
	setIfNotEmpty(&c.APIPrefix, o.APIPrefix)
	setIfNotEmpty(&c.OutputFormat, o.OutputFormat)
	c.UseCache = c.UseCache || o.UseCache
	setIfNotEmpty(&c.CacheDir, o.CacheDir)
	if o.Verbose {
		c.LogLevel = "debug"
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Mode != ModeCheck && c.Mode != ModeFix {
		return fmt.Errorf("invalid mode %q: must be %q or %q", c.Mode, ModeCheck, ModeFix)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("invalid worker count %d: must be at least 1", c.NumWorkers)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if c.OutputFormat != OutputText && c.OutputFormat != OutputJSON {
		return fmt.Errorf("invalid output format %q: must be %q or %q", c.OutputFormat, OutputText, OutputJSON)
	}
	for _, g := range c.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid exclude glob %q", g)
		}
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("tool timeout cannot be negative")
	}
	return nil
}

// ClassifierOptions returns the path classification settings.
func (c *Config) ClassifierOptions() classify.Options {
	return classify.Options{
		ExcludedPrefixes: c.ExcludedPrefixes,
		ExcludeGlobs:     c.ExcludeGlobs,
		APIPrefix:        c.APIPrefix,
	}
}

// RuleOptions returns the rule-set settings.
func (c *Config) RuleOptions() rules.Options {
	return rules.Options{
		Namespace:         c.Namespace,
		ProtobufAllowlist: c.ProtobufAllowlist,
		IncludeDirs:       c.IncludeDirs,
	}
}

// Fingerprint identifies the settings that influence findings, so cached
// results from a different configuration are never reused.
func (c *Config) Fingerprint() string {
	data, _ := json.Marshal(struct {
		Prefixes  []string
		Globs     []string
		API       string
		Namespace string
		Allowlist []string
		Includes  []string
		Tools     tool.Paths
	}{
		c.ExcludedPrefixes, c.ExcludeGlobs, c.APIPrefix, c.Namespace,
		c.ProtobufAllowlist, c.IncludeDirs, c.Tools,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
