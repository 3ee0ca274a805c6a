package tests

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/dispatch"
	"github.com/user/sastbridge/pkg/history"
	"github.com/user/sastbridge/pkg/logging"
	"github.com/user/sastbridge/pkg/pipeline"
	"github.com/user/sastbridge/pkg/sarif"
	"github.com/user/sastbridge/pkg/wrappers"
)

// fixtureProject writes a small vulnerable C project.
func fixtureProject(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "vulnproj")
	require.NoError(t, os.MkdirAll(root, 0o755))
	src := `#include <string.h>
#include <stdlib.h>

void copy(char *dst, const char *src) {
    strcpy(dst, src);
}

int run(const char *cmd) {
    return system(cmd);
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "vuln.c"), []byte(src), 0o644))
	return root
}

// patternOnlyPipeline scans with just the built-in analyzer so the test
// needs no external binaries.
func patternOnlyPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), config.Overrides{})
	require.NoError(t, err)

	log := logging.Nop()
	p := pipeline.New(cfg, log)
	p.Registry = dispatch.NewRegistry(dispatch.Registration{
		Adapter:        wrappers.NewPatternAdapter(log),
		Languages:      []string{"c", "cpp", "java", "python", "javascript"},
		DefaultTimeout: time.Minute,
	})
	return p
}

func TestScanEndToEnd(t *testing.T) {
	root := fixtureProject(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	summary, err := patternOnlyPipeline(t).Run(context.Background(), root, outDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, summary.Languages)
	require.NotEmpty(t, summary.Findings)
	assert.Equal(t, len(summary.Findings), summary.ByTool["Pattern Scan"])

	ruleIDs := map[string]bool{}
	for _, f := range summary.Findings {
		ruleIDs[f.RuleID] = true
		assert.True(t, f.Severity.Valid())
		assert.Equal(t, "c", f.Language)
		// Reachability disabled: findings carry not-evaluated evidence.
		require.NotNil(t, f.Reachability)
		assert.False(t, f.Reachability.Evaluated)
		// Verification disabled: no verdicts attached.
		assert.Nil(t, f.Verdict)
	}
	assert.True(t, ruleIDs["CWE-119"], "strcpy should be flagged")
	assert.True(t, ruleIDs["CWE-78"], "system should be flagged")
}

func TestScanWritesReports(t *testing.T) {
	root := fixtureProject(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	summary, err := patternOnlyPipeline(t).Run(context.Background(), root, outDir)
	require.NoError(t, err)

	perTool := readLog(t, filepath.Join(outDir, "pattern_scan.sarif"))
	merged := readLog(t, filepath.Join(outDir, "merged.sarif"))

	require.Len(t, perTool.Runs, 1)
	require.Len(t, merged.Runs, 1)
	assert.Equal(t, "Pattern Scan", merged.Runs[0].Tool.Driver.Name)
	assert.Len(t, merged.Runs[0].Results, len(summary.Findings))

	require.Len(t, merged.Runs[0].Invocations, 1)
	assert.True(t, merged.Runs[0].Invocations[0].ExecutionSuccessful)
	assert.NotEmpty(t, merged.Runs[0].Invocations[0].EndTimeUTC)

	for _, res := range merged.Runs[0].Results {
		require.Len(t, res.Locations, 1)
		uri := res.Locations[0].PhysicalLocation.ArtifactLocation.URI
		assert.Equal(t, "vulnproj/vuln.c", uri)
		assert.GreaterOrEqual(t, res.Locations[0].PhysicalLocation.Region.StartLine, 1)
	}
}

func TestScanRecordsHistory(t *testing.T) {
	root := fixtureProject(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	summary, err := patternOnlyPipeline(t).Run(context.Background(), root, outDir)
	require.NoError(t, err)

	entries, err := history.Load(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, root, entries[0].Project)
	assert.Equal(t, []string{"c"}, entries[0].Languages)
	assert.Equal(t, summary.ByTool["Pattern Scan"], entries[0].FindingsByTool["Pattern Scan"])
}

func TestScanEmptyProjectStillReports(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("docs\n"), 0o644))
	outDir := filepath.Join(t.TempDir(), "reports")

	summary, err := patternOnlyPipeline(t).Run(context.Background(), root, outDir)
	require.NoError(t, err)

	assert.Empty(t, summary.Languages)
	assert.Empty(t, summary.Findings)

	merged := readLog(t, filepath.Join(outDir, "merged.sarif"))
	assert.Empty(t, merged.Runs)
}

func TestScanProgressStages(t *testing.T) {
	root := fixtureProject(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	p := patternOnlyPipeline(t)
	var stages []string
	p.Progress = func(stage, detail string) { stages = append(stages, stage) }

	_, err := p.Run(context.Background(), root, outDir)
	require.NoError(t, err)

	assert.Contains(t, stages, "detect")
	assert.Contains(t, stages, "scan")
	assert.Contains(t, stages, "normalize")
	assert.Contains(t, stages, "report")
	assert.NotContains(t, stages, "verify")
}

func readLog(t *testing.T, path string) *sarif.Log {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var log sarif.Log
	require.NoError(t, json.Unmarshal(data, &log))
	return &log
}
