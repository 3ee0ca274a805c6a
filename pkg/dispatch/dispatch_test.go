package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/logging"
)

type fakeAdapter struct {
	name      string
	available bool
	fail      bool
	block     bool
}

func (a *fakeAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: a.name, Version: "test"}
}
func (a *fakeAdapter) Available() bool { return a.available }
func (a *fakeAdapter) Run(ctx context.Context, root, lang string) (*engine.RawOutput, error) {
	if a.fail {
		return nil, errors.New("boom")
	}
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &engine.RawOutput{
		Tool:     a.Identity(),
		Language: lang,
		Findings: []engine.RawFinding{{File: "f", RuleID: "r", Line: 1, Severity: "error"}},
	}, nil
}
func (a *fakeAdapter) MapSeverity(raw string) engine.Severity { return engine.Severity(raw) }

func testCfg(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), config.Overrides{})
	require.NoError(t, err)
	return cfg
}

func TestRegistryForOrderIsStable(t *testing.T) {
	reg := DefaultRegistry(logging.Nop())

	forC := reg.For("c")
	require.Len(t, forC, 3)
	assert.Equal(t, "CodeQL", forC[0].Adapter.Identity().Name)
	assert.Equal(t, "Joern", forC[1].Adapter.Identity().Name)
	assert.Equal(t, "Pattern Scan", forC[2].Adapter.Identity().Name)

	forJava := reg.For("java")
	require.Len(t, forJava, 3)
	assert.Equal(t, "SpotBugs", forJava[1].Adapter.Identity().Name)

	assert.Empty(t, reg.For("fortran"))
}

func TestDispatchIsolatesFailures(t *testing.T) {
	good := &fakeAdapter{name: "Good", available: true}
	bad := &fakeAdapter{name: "Bad", available: true, fail: true}
	missing := &fakeAdapter{name: "Missing", available: false}

	reg := NewRegistry(
		Registration{Adapter: good, Languages: []string{"c"}, DefaultTimeout: time.Minute},
		Registration{Adapter: bad, Languages: []string{"c"}, DefaultTimeout: time.Minute},
		Registration{Adapter: missing, Languages: []string{"c"}, DefaultTimeout: time.Minute},
	)

	d := New(reg, testCfg(t), logging.Nop())
	results := d.Dispatch(context.Background(), t.TempDir(), []string{"c"})

	require.Len(t, results, 3)
	assert.NotNil(t, results[0].Output)
	assert.Nil(t, results[1].Output)
	assert.Nil(t, results[2].Output)
	// Results keep registry order regardless of completion order.
	assert.Equal(t, "Good", results[0].Adapter.Identity().Name)
	assert.Equal(t, "Bad", results[1].Adapter.Identity().Name)
}

func TestDispatchDegradesOnToolTimeout(t *testing.T) {
	slow := &fakeAdapter{name: "Slow", available: true, block: true}
	good := &fakeAdapter{name: "Good", available: true}

	reg := NewRegistry(
		Registration{Adapter: slow, Languages: []string{"c"}, DefaultTimeout: time.Minute},
		Registration{Adapter: good, Languages: []string{"c"}, DefaultTimeout: time.Minute},
	)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tools:\n  slow:\n    timeout: 1\n"), 0o644))
	cfg, err := config.Load(cfgPath, config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.ToolTimeout("slow", time.Minute))

	d := New(reg, cfg, logging.Nop())
	results := d.Dispatch(context.Background(), t.TempDir(), []string{"c"})

	// The timed-out tool yields a nil-output result; the rest still run.
	require.Len(t, results, 2)
	assert.Equal(t, "Slow", results[0].Adapter.Identity().Name)
	assert.Nil(t, results[0].Output)
	assert.Equal(t, "Good", results[1].Adapter.Identity().Name)
	assert.NotNil(t, results[1].Output)
}

func TestDispatchHonorsDisabledTools(t *testing.T) {
	a := &fakeAdapter{name: "Good", available: true}
	reg := NewRegistry(Registration{Adapter: a, Languages: []string{"c"}, DefaultTimeout: time.Minute})

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"),
		config.Overrides{DisabledTools: []string{"good"}})
	require.NoError(t, err)

	d := New(reg, cfg, logging.Nop())
	assert.Empty(t, d.Dispatch(context.Background(), t.TempDir(), []string{"c"}))
}

func TestDispatchFansOutPerLanguage(t *testing.T) {
	a := &fakeAdapter{name: "Multi", available: true}
	reg := NewRegistry(Registration{Adapter: a, Languages: []string{"c", "python"}, DefaultTimeout: time.Minute})

	d := New(reg, testCfg(t), logging.Nop())
	results := d.Dispatch(context.Background(), t.TempDir(), []string{"c", "python", "java"})

	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Language)
	assert.Equal(t, "python", results[1].Language)
}

func TestSynthesizePlanSkipsUnknownLanguage(t *testing.T) {
	assert.Nil(t, SynthesizePlan(t.TempDir(), "python"))
	assert.Nil(t, SynthesizePlan(t.TempDir(), "javascript"))
}

func TestSynthesizePlanEmptyProject(t *testing.T) {
	assert.Nil(t, SynthesizePlan(t.TempDir(), "c"))
}

func TestSynthesizePlanObjectNames(t *testing.T) {
	assert.Equal(t, "src_main.c.o", objectName("src/main.c", "c"))
	assert.Equal(t, "src/Main.class", objectName("src/Main.java", "java"))
}

func TestCleanupPlanRemovesArtifacts(t *testing.T) {
	root := t.TempDir()
	obj := filepath.Join(root, "main.c.o")
	require.NoError(t, os.WriteFile(obj, []byte("o"), 0o644))

	CleanupPlan(root, &engine.CompilePlan{
		Compiler: "gcc",
		Units:    []engine.CompileUnit{{Source: "main.c", Object: "main.c.o"}},
	})

	_, err := os.Stat(obj)
	assert.True(t, os.IsNotExist(err))
	// nil plan is a no-op
	CleanupPlan(root, nil)
}
