package engine

import "context"

// RawFinding is one record as reported by a tool, before normalization.
// Severity carries the tool's native value; the adapter's severity table
// maps it onto the canonical scale.
type RawFinding struct {
	File     string
	Line     int
	Column   int
	RuleID   string
	RuleName string
	Message  string
	Severity string
	Snippet  string
}

// RawOutput is everything one adapter invocation produced.
type RawOutput struct {
	Tool     ToolIdentity
	Language string
	Findings []RawFinding
}

// CompileUnit is one {source, target} pair of a synthesized build.
type CompileUnit struct {
	Source string // project-relative source file
	Object string // project-relative artifact the compile produces
}

// CompilePlan is the declarative build the dispatcher synthesizes for
// compiled languages: each unit compiles individually so object names
// cannot collide. The dispatcher removes every listed artifact after the
// adapter returns, success or failure.
type CompilePlan struct {
	Compiler string
	Units    []CompileUnit
}

// Commands renders the plan as one argument vector per unit.
func (p *CompilePlan) Commands() [][]string {
	cmds := make([][]string, 0, len(p.Units))
	for _, u := range p.Units {
		if p.Compiler == "javac" {
			cmds = append(cmds, []string{p.Compiler, u.Source})
			continue
		}
		cmds = append(cmds, []string{p.Compiler, "-c", u.Source, "-o", u.Object})
	}
	return cmds
}

// Adapter pairs the invocation logic and output parser for one external
// analysis engine. Run must be fail-soft: tool-level problems (missing
// binary, timeout, bad exit, unparsable report) come back as an error so
// the dispatcher can log and continue, never as a panic or a partial write.
type Adapter interface {
	Identity() ToolIdentity
	// Available reports whether the tool can run in this environment.
	Available() bool
	Run(ctx context.Context, projectRoot, language string) (*RawOutput, error)
	// MapSeverity translates a tool-native severity onto the canonical
	// scale. Unknown values map to SeverityWarning.
	MapSeverity(raw string) Severity
}

// BuildAwareAdapter is implemented by database-creating adapters that can
// use a synthesized compile plan. The plan may be nil, in which case the
// adapter attempts an empty-build-context analysis.
type BuildAwareAdapter interface {
	Adapter
	RunWithBuild(ctx context.Context, projectRoot, language string, plan *CompilePlan) (*RawOutput, error)
}
