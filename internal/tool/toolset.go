package tool

// Paths names the binaries of the external tools.
type Paths struct {
	CodeFormatter  string `yaml:"clang_format"`
	BuildFormatter string `yaml:"buildifier"`
	BuildFixer     string `yaml:"build_fixer"`
	HeaderOrder    string `yaml:"header_order"`
}

// DefaultPaths are used when neither the config file nor the environment
// names a binary.
var DefaultPaths = Paths{
	CodeFormatter:  "clang-format",
	BuildFormatter: "buildifier",
	BuildFixer:     "envoy_build_fixer.py",
	HeaderOrder:    "header_order.py",
}

// Toolset binds the adapters to a runner.
type Toolset struct {
	Runner Runner

	CodeFormatter  *Adapter
	BuildFormatter *Adapter
	BuildFixer     *Adapter
	HeaderOrder    *Adapter
}

// NewToolset builds adapters for the given binaries.
func NewToolset(runner Runner, paths Paths) *Toolset {
	return &Toolset{
		Runner: runner,
		CodeFormatter: &Adapter{
			Label:       "clang-format",
			Binary:      paths.CodeFormatter,
			CheckArgs:   func(path, _ string) []string { return []string{path} },
			RewriteArgs: func(path string) []string { return []string{"-i", path} },
		},
		BuildFormatter: &Adapter{
			Label:       "buildifier",
			Binary:      paths.BuildFormatter,
			CheckArgs:   func(string, string) []string { return []string{"-mode=fix"} },
			PipeContent: true,
			RewriteArgs: func(path string) []string { return []string{"-mode=fix", path} },
		},
		BuildFixer: &Adapter{
			Label:       "build fixer",
			Binary:      paths.BuildFixer,
			CheckArgs:   func(path, out string) []string { return []string{path, out} },
			WritesFile:  true,
			RewriteArgs: func(path string) []string { return []string{path, path} },
		},
		HeaderOrder: &Adapter{
			Label:       "header order",
			Binary:      paths.HeaderOrder,
			CheckArgs:   func(path, _ string) []string { return []string{path} },
			RewriteArgs: func(path string) []string { return []string{"--rewrite", path} },
		},
	}
}
