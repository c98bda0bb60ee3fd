package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/detent/checkformat/internal/config"
	"github.com/detent/checkformat/internal/finding"
	"github.com/detent/checkformat/internal/logging"
	"github.com/detent/checkformat/internal/tool"
	"github.com/detent/checkformat/internal/tool/tooltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaths = tool.Paths{
	CodeFormatter:  "clang-format",
	BuildFormatter: "buildifier",
	BuildFixer:     "fixer",
	HeaderOrder:    "header-order",
}

// identity answers every tool as if the file were already formatted.
func identity(inv tool.Invocation) (*tool.Result, error) {
	if inv.Stdin != nil {
		return &tool.Result{Stdout: string(inv.Stdin)}, nil
	}
	if inv.Name == testPaths.BuildFixer {
		data, err := os.ReadFile(inv.Args[0])
		if err != nil {
			return nil, err
		}
		if inv.Args[1] != inv.Args[0] {
			if err := os.WriteFile(inv.Args[1], data, 0o600); err != nil {
				return nil, err
			}
		}
		return &tool.Result{}, nil
	}
	data, err := os.ReadFile(inv.Args[len(inv.Args)-1])
	if err != nil {
		return nil, err
	}
	return &tool.Result{Stdout: string(data)}, nil
}

type fixture struct {
	dir    string
	runner *tooltest.Runner
	cfg    *config.Config
}

func newFixture(t *testing.T, mode config.Mode) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Tools = testPaths
	cfg.APIPrefix = dir + "/api/"
	cfg.ExcludedPrefixes = append(cfg.ExcludedPrefixes, dir+"/generated/")
	return &fixture{dir: dir, runner: &tooltest.Runner{Respond: identity}, cfg: &cfg}
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.cfg, tool.NewToolset(f.runner, f.cfg.Tools), logging.Discard())
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const cleanSource = "#include \"source/common/foo.h\"\n\nnamespace Envoy {\n\nint x = 1;\n\n} // namespace Envoy\n"

func TestOutOfScopePathsReturnNothing(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	p := f.pipeline()

	excluded := filepath.Join(f.dir, "generated", "missing.cc")
	res := p.RunOnFile(context.Background(), excluded)
	assert.True(t, res.Record.Excluded)
	assert.Empty(t, res.Findings)

	unknown := f.write(t, "notes.txt", "no  namespace here.  ")
	res = p.RunOnFile(context.Background(), unknown)
	assert.False(t, res.Record.InScope)
	assert.Empty(t, res.Findings)

	assert.Empty(t, f.runner.Calls())
}

func TestCleanFileRoundTrip(t *testing.T) {
	for _, mode := range []config.Mode{config.ModeCheck, config.ModeFix} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			path := f.write(t, "source/common/foo.cc", cleanSource)
			before, err := os.Stat(path)
			require.NoError(t, err)

			res := f.pipeline().RunOnFile(context.Background(), path)

			assert.Empty(t, res.Findings)
			assert.False(t, res.Modified)
			assert.Equal(t, cleanSource, read(t, path))
			after, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, before.ModTime(), after.ModTime())
			assert.Equal(t, []string{"header-order", "clang-format"}, f.runner.Names())
		})
	}
}

func TestCheckOrdersFindingsByStep(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "source/foo.cc", "int x;\n// Hello.  World\n")

	res := f.pipeline().RunOnFile(context.Background(), path)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, finding.KindStructural, res.Findings[0].Kind)
	assert.Contains(t, res.Findings[0].Message, "Unable to find Envoy namespace")
	assert.Equal(t, finding.KindContent, res.Findings[1].Kind)
	assert.Equal(t, 2, res.Findings[1].Line)
}

func TestCheckReportsFormatterMismatch(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "source/foo.cc", cleanSource)
	f.runner.Respond = func(inv tool.Invocation) (*tool.Result, error) {
		if inv.Name == "clang-format" {
			return &tool.Result{Stdout: strings.Replace(cleanSource, "int x = 1;", "int x=1;", 1), ExitCode: 0}, nil
		}
		return identity(inv)
	}

	res := f.pipeline().RunOnFile(context.Background(), path)

	require.NotEmpty(t, res.Findings)
	assert.Equal(t, "clang-format check failed for file: "+path, res.Findings[0].Message)
	for _, fd := range res.Findings[1:] {
		assert.Equal(t, 5, fd.Line)
	}
}

func TestCheckNeverWrites(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	content := "namespace Envoy {\n#include <envoy/foo.h>\n// A.  B\n}\n"
	path := f.write(t, "source/foo.cc", content)

	res := f.pipeline().RunOnFile(context.Background(), path)

	assert.Len(t, res.Findings, 2)
	assert.Equal(t, content, read(t, path))
}

func TestFixIsIdempotent(t *testing.T) {
	f := newFixture(t, config.ModeFix)
	path := f.write(t, "source/foo.cc",
		"#include <envoy/foo.h>\nnamespace Envoy {\n// A.  B.   C\nProtobufWkt::MapPair<std::string, int> m;\n}\n")

	first := f.pipeline().RunOnFile(context.Background(), path)
	assert.Empty(t, first.Findings)
	assert.True(t, first.Modified)
	fixed := read(t, path)
	assert.Equal(t,
		"#include \"envoy/foo.h\"\nnamespace Envoy {\n// A. B. C\nProtobuf::MapPair<Envoy::ProtobufTypes::String, int> m;\n}\n",
		fixed)

	second := f.pipeline().RunOnFile(context.Background(), path)
	assert.Empty(t, second.Findings)
	assert.False(t, second.Modified)
	assert.Equal(t, fixed, read(t, path))

	f.cfg.Mode = config.ModeCheck
	assert.Empty(t, f.pipeline().RunOnFile(context.Background(), path).Findings)
}

func TestFixLeavesStructuralViolations(t *testing.T) {
	f := newFixture(t, config.ModeFix)
	path := f.write(t, "source/foo.cc", "// A.  B\nint x;\n")

	res := f.pipeline().RunOnFile(context.Background(), path)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, finding.KindStructural, res.Findings[0].Kind)
	assert.Equal(t, HandFixMessage, res.Findings[1].Message)
	assert.True(t, res.Modified)
	assert.Equal(t, "// A. B\nint x;\n", read(t, path))
	assert.Empty(t, f.runner.Calls())
}

func TestFixPreservesFileMode(t *testing.T) {
	f := newFixture(t, config.ModeFix)
	path := f.write(t, "source/foo.cc", "namespace Envoy {\n// A.  B\n}\n")
	require.NoError(t, os.Chmod(path, 0o640))

	f.pipeline().RunOnFile(context.Background(), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestBuildFiles(t *testing.T) {
	const manifest = "cc_library(\n    deps = [\"protobuf\"],\n)\n"

	t.Run("check runs fixer formatter and deps rule", func(t *testing.T) {
		f := newFixture(t, config.ModeCheck)
		path := f.write(t, "source/BUILD", manifest)

		res := f.pipeline().RunOnFile(context.Background(), path)

		require.Len(t, res.Findings, 1)
		assert.Equal(t, 2, res.Findings[0].Line)
		assert.Equal(t, finding.KindStructural, res.Findings[0].Kind)
		assert.Equal(t, []string{"fixer", "buildifier"}, f.runner.Names())
	})

	t.Run("api files skip the fixer", func(t *testing.T) {
		f := newFixture(t, config.ModeCheck)
		path := f.write(t, "api/BUILD", "cc_library()\n")

		res := f.pipeline().RunOnFile(context.Background(), path)

		assert.True(t, res.Record.IsAPI)
		assert.Empty(t, res.Findings)
		assert.Equal(t, []string{"buildifier"}, f.runner.Names())
	})

	t.Run("fix stops when the fixer fails", func(t *testing.T) {
		f := newFixture(t, config.ModeFix)
		path := f.write(t, "source/BUILD", "cc_library()\n")
		f.runner.Respond = func(inv tool.Invocation) (*tool.Result, error) {
			return &tool.Result{ExitCode: 2}, nil
		}

		res := f.pipeline().RunOnFile(context.Background(), path)

		require.Len(t, res.Findings, 1)
		assert.Equal(t, "build fixer rewrite failed for file: "+path, res.Findings[0].Message)
		assert.Equal(t, []string{"fixer"}, f.runner.Names())
	})

	t.Run("fix reports dependency violations", func(t *testing.T) {
		f := newFixture(t, config.ModeFix)
		path := f.write(t, "source/BUILD", manifest)

		res := f.pipeline().RunOnFile(context.Background(), path)

		require.Len(t, res.Findings, 2)
		assert.Equal(t, HandFixMessage, res.Findings[1].Message)
		assert.Equal(t, []string{"fixer", "buildifier"}, f.runner.Names())
	})

	t.Run("line rules do not apply", func(t *testing.T) {
		f := newFixture(t, config.ModeCheck)
		path := f.write(t, "source/BUILD", "# A.  B\n")

		assert.Empty(t, f.pipeline().RunOnFile(context.Background(), path).Findings)
	})
}

func TestDocsRunLineRulesOnly(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "docs/README.md", "# Title\n\nOne.  Two.\n")

	res := f.pipeline().RunOnFile(context.Background(), path)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, 3, res.Findings[0].Line)
	assert.Empty(t, f.runner.Calls())
}

func TestProtocolFilesGetFormatterOnly(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "api/foo.proto", "syntax = \"proto3\";\nimport \"google/protobuf/any.proto\";\n")

	res := f.pipeline().RunOnFile(context.Background(), path)

	assert.Empty(t, res.Findings)
	assert.Equal(t, []string{"clang-format"}, f.runner.Names())
}

func TestPanicBecomesInternalFindings(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "source/foo.cc", cleanSource)
	f.runner.Respond = func(tool.Invocation) (*tool.Result, error) {
		panic("boom")
	}

	res := f.pipeline().RunOnFile(context.Background(), path)

	require.NotEmpty(t, res.Findings)
	assert.Equal(t, "panic: boom", res.Findings[0].Message)
	assert.Equal(t, len(res.Findings), finding.Count(res.Findings, finding.KindInternal))
}

type mapCache map[string]bool

func (m mapCache) Key(path string, content []byte) string { return path + "\x00" + string(content) }
func (m mapCache) IsClean(key string) (bool, error)        { return m[key], nil }

func TestCacheSkipsCleanFiles(t *testing.T) {
	f := newFixture(t, config.ModeCheck)
	path := f.write(t, "source/foo.cc", cleanSource)
	cache := mapCache{}
	p := f.pipeline()
	p.Cache = cache

	first := p.RunOnFile(context.Background(), path)
	require.NotEmpty(t, first.CacheKey)
	assert.False(t, first.Cached)
	calls := len(f.runner.Calls())

	cache[first.CacheKey] = true
	second := p.RunOnFile(context.Background(), path)
	assert.True(t, second.Cached)
	assert.Len(t, f.runner.Calls(), calls)

	dirty := f.write(t, "source/bar.cc", "int x;\n")
	assert.Empty(t, p.RunOnFile(context.Background(), dirty).CacheKey)
}
