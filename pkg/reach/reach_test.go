package reach

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/logging"
)

func reachCfg(t *testing.T, enabled bool) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), config.Overrides{})
	require.NoError(t, err)
	cfg.EnableReachability = enabled
	return cfg
}

func TestAugmentDisabledMarksNotEvaluated(t *testing.T) {
	a := NewAugmenter(reachCfg(t, false), logging.Nop())
	findings := []engine.Finding{
		{FilePath: "p/a.c", Line: 1, RuleID: "r", Language: "c"},
		{FilePath: "p/b.py", Line: 2, RuleID: "r2", Language: "python"},
	}

	a.Augment(context.Background(), t.TempDir(), findings)

	for _, f := range findings {
		require.NotNil(t, f.Reachability)
		assert.False(t, f.Reachability.Evaluated)
		assert.False(t, f.Reachability.Reachable)
	}
}

func TestOracleSelectionByLanguage(t *testing.T) {
	a := NewAugmenter(reachCfg(t, true), logging.Nop())

	assert.IsType(t, &svfOracle{}, a.oracleFor("c"))
	assert.IsType(t, &svfOracle{}, a.oracleFor("cpp"))
	assert.IsType(t, &sootupOracle{}, a.oracleFor("java"))
	assert.Nil(t, a.oracleFor("python"))
	assert.Nil(t, a.oracleFor("javascript"))
}

func TestNotSupportedEvidence(t *testing.T) {
	r := engine.NotSupported("python")
	assert.True(t, r.Evaluated)
	assert.False(t, r.Supported)
	assert.False(t, r.Reachable)
	assert.Contains(t, r.CallStack[0], "python")
}

func TestCallStackFromDot(t *testing.T) {
	dot := `digraph "Call Graph" {
	Node0x1 [shape=record,label="{fun: main}"];
	Node0x2 [shape=record,label="{fun: copy}"];
	Node0x3 [shape=record,label="{fun: helper}"];
	Node0x1 -> Node0x2;
	Node0x2 -> Node0x3;
}`
	stack := callStackFromDot(dot)
	assert.Equal(t, []string{"main", "copy", "helper"}, stack)
}

func TestCallStackFromDotNoMain(t *testing.T) {
	dot := `Node0x2 [label="{fun: copy}"];
	Node0x2 -> Node0x2;`
	assert.Nil(t, callStackFromDot(dot))
}

func TestCallStackFromDotIsolatedMain(t *testing.T) {
	dot := `Node0x1 [label="{fun: main}"];`
	assert.Nil(t, callStackFromDot(dot))
}

func TestRelativeInProject(t *testing.T) {
	root := "/tmp/myproj"
	assert.Equal(t, "src/a.c", relativeInProject(root, "/tmp/myproj/src/a.c"))
	assert.Equal(t, "src/a.c", relativeInProject(root, "myproj/src/a.c"))
	assert.Equal(t, "src/a.c", relativeInProject(root, "src/a.c"))
	assert.Equal(t, "a.c", relativeInProject(root, "/elsewhere/a.c"))
}
