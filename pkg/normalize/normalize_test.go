package normalize

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/logging"
)

// stubAdapter maps severities verbatim when canonical and leaves
// everything else untouched so the normalizer's guard is exercised.
type stubAdapter struct{}

func (stubAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "Stub", Version: "0.0.1"}
}
func (stubAdapter) Available() bool { return true }
func (stubAdapter) Run(context.Context, string, string) (*engine.RawOutput, error) {
	return nil, nil
}
func (stubAdapter) MapSeverity(raw string) engine.Severity {
	return engine.Severity(raw)
}

func TestConvertNilOutput(t *testing.T) {
	n := New(logging.Nop())
	assert.Empty(t, n.Convert(stubAdapter{}, nil, "/p"))
}

func TestConvertSkipsMalformedKeepsRest(t *testing.T) {
	n := New(logging.Nop())
	out := &engine.RawOutput{
		Tool:     stubAdapter{}.Identity(),
		Language: "c",
		Findings: []engine.RawFinding{
			{File: "proj/a.c", Line: 3, RuleID: "CWE-119", Severity: "error"},
			{File: "", Line: 9, RuleID: "CWE-78", Severity: "error"},
			{File: "proj/b.c", Line: 4, RuleID: "", Severity: "error"},
		},
	}

	findings := n.Convert(stubAdapter{}, out, "/tmp/proj")
	require.Len(t, findings, 1)
	assert.Equal(t, "CWE-119", findings[0].RuleID)
	assert.Equal(t, "c", findings[0].Language)
	assert.Equal(t, "Stub", findings[0].Tool.Name)
}

func TestConvertClampsAndDefaults(t *testing.T) {
	n := New(logging.Nop())
	out := &engine.RawOutput{
		Tool:     stubAdapter{}.Identity(),
		Language: "python",
		Findings: []engine.RawFinding{
			{File: "x.py", Line: 0, Column: -2, RuleID: "B101", Severity: "bogus"},
		},
	}

	findings := n.Convert(stubAdapter{}, out, "/tmp/proj")
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, 1, f.Line)
	assert.Equal(t, 1, f.Column)
	assert.Equal(t, "B101", f.RuleName) // name falls back to the id
	assert.Equal(t, engine.SeverityWarning, f.Severity)
}

func TestConvertSeverityAlwaysCanonical(t *testing.T) {
	n := New(logging.Nop())
	for _, raw := range []string{"error", "warning", "note", "HIGH", "", "7.5"} {
		out := &engine.RawOutput{
			Tool:     stubAdapter{}.Identity(),
			Findings: []engine.RawFinding{{File: "f", RuleID: "r", Severity: raw}},
		}
		findings := n.Convert(stubAdapter{}, out, "/p")
		require.Len(t, findings, 1)
		assert.True(t, findings[0].Severity.Valid(), "raw severity %q", raw)
	}
}

func TestRelativePathKeepsProjectName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproj")
	abs := filepath.Join(root, "src", "main.c")
	assert.Equal(t, "myproj/src/main.c", RelativePath(root, abs))
}

func TestRelativePathKeepsForeignPaths(t *testing.T) {
	assert.Equal(t, "/elsewhere/a.c", RelativePath("/tmp/proj", "/elsewhere/a.c"))
}
