package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Overrides{}, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ModeCheck, cfg.Mode)
	assert.Equal(t, ".", cfg.Target)
	assert.Equal(t, DefaultExcludedPrefixes, cfg.ExcludedPrefixes)
	assert.Equal(t, DefaultAPIPrefix, cfg.APIPrefix)
	assert.Equal(t, "clang-format", cfg.Tools.CodeFormatter)
	assert.GreaterOrEqual(t, cfg.NumWorkers, 1)
	assert.Empty(t, cfg.Source)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
excluded_prefixes:
  - ./out/
exclude_globs:
  - "**/*.pb.h"
namespace: Acme
include_dirs: [acme]
tools:
  clang_format: clang-format-14
  buildifier: /opt/buildifier
tool_timeout: 30s
num_workers: 3
`)

	cfg, err := Load(Overrides{
		Mode:                ModeFix,
		AddExcludedPrefixes: []string{"./local/"},
		NumWorkers:          8,
	}, envMap(map[string]string{EnvBuildFormatter: "/env/buildifier"}))
	require.NoError(t, err)

	assert.Equal(t, ModeFix, cfg.Mode)
	assert.Equal(t, DefaultConfigFile, cfg.Source)
	assert.Contains(t, cfg.ExcludedPrefixes, "./generated/")
	assert.Contains(t, cfg.ExcludedPrefixes, "./out/")
	assert.Equal(t, "./local/", cfg.ExcludedPrefixes[len(cfg.ExcludedPrefixes)-1])
	assert.Equal(t, []string{"**/*.pb.h"}, cfg.ExcludeGlobs)
	assert.Equal(t, "Acme", cfg.Namespace)
	assert.Equal(t, []string{"acme"}, cfg.IncludeDirs)
	assert.Equal(t, "clang-format-14", cfg.Tools.CodeFormatter)
	assert.Equal(t, "/env/buildifier", cfg.Tools.BuildFormatter)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 8, cfg.NumWorkers)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(Overrides{ConfigPath: "missing.yaml"}, envMap(nil))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "num_workers: [not a number\n")

	_, err := Load(Overrides{}, envMap(nil))
	assert.Error(t, err)
}

func TestLoadVerboseAndEnvLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Overrides{}, envMap(map[string]string{EnvLogLevel: "info"}))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	cfg, err = Load(Overrides{Verbose: true}, envMap(map[string]string{EnvLogLevel: "info"}))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "lint" }},
		{name: "zero workers", mutate: func(c *Config) { c.NumWorkers = 0 }},
		{name: "empty namespace", mutate: func(c *Config) { c.Namespace = "" }},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }},
		{name: "bad glob", mutate: func(c *Config) { c.ExcludeGlobs = []string{"[unclosed"} }},
		{name: "negative timeout", mutate: func(c *Config) { c.ToolTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Mode = ModeFix
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "mode does not affect findings")

	b.Namespace = "Other"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
