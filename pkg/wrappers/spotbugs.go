package wrappers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/detect"
	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/sarif"
)

// SpotBugsAdapter compiles the project's Java sources itself, points
// SpotBugs at the class files, and parses the SARIF report. The compiled
// classes are transient and removed on every exit path.
type SpotBugsAdapter struct {
	Log *zap.SugaredLogger
}

func NewSpotBugsAdapter(log *zap.SugaredLogger) *SpotBugsAdapter {
	return &SpotBugsAdapter{Log: log}
}

func (a *SpotBugsAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "SpotBugs", InfoURI: "https://spotbugs.github.io"}
}

// spotbugsCommand resolves the binary: PATH first, then SPOTBUGS_HOME.
func spotbugsCommand() string {
	if cmd, err := exec.LookPath("spotbugs"); err == nil {
		return cmd
	}
	if home := os.Getenv("SPOTBUGS_HOME"); home != "" {
		cmd := filepath.Join(home, "bin", "spotbugs")
		if _, err := os.Stat(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

func (a *SpotBugsAdapter) Available() bool {
	if spotbugsCommand() == "" {
		return false
	}
	_, err := exec.LookPath("javac")
	return err == nil
}

func (a *SpotBugsAdapter) Run(ctx context.Context, projectRoot, language string) (*engine.RawOutput, error) {
	javaFiles := detect.FilesByLanguage(projectRoot, "java")
	if len(javaFiles) == 0 {
		return &engine.RawOutput{Tool: a.Identity(), Language: language}, nil
	}

	classesDir, err := os.MkdirTemp("", "spotbugs-classes-")
	if err != nil {
		return nil, fmt.Errorf("spotbugs: temp dir: %w", err)
	}
	defer os.RemoveAll(classesDir)

	args := []string{"-d", classesDir, "-sourcepath", projectRoot}
	args = append(args, javaFiles...)
	_, stderr, code, err := runCommand(ctx, projectRoot, "javac", args...)
	if err != nil {
		return nil, fmt.Errorf("javac: %w", err)
	}
	if code != 0 {
		// Per-file compilation may still have produced classes for the
		// sources that did compile; analyze whatever is there.
		a.Log.Warnw("javac reported errors, analyzing the classes that compiled", "output", tail(stderr))
	}
	if !hasClassFiles(classesDir) {
		return nil, fmt.Errorf("spotbugs: no class files produced: %s", tail(stderr))
	}

	reportDir, err := os.MkdirTemp("", "spotbugs-report-")
	if err != nil {
		return nil, fmt.Errorf("spotbugs: temp dir: %w", err)
	}
	defer os.RemoveAll(reportDir)
	reportPath := filepath.Join(reportDir, "report.sarif")

	_, stderr, code, err = runCommand(ctx, projectRoot, spotbugsCommand(),
		"-sarif",
		"-output", reportPath,
		"-sourcepath", projectRoot,
		classesDir,
	)
	if err != nil {
		return nil, fmt.Errorf("spotbugs: %w", err)
	}
	if code != 0 {
		a.Log.Warnw("spotbugs exited non-zero, attempting to parse the report anyway", "code", code, "output", tail(stderr))
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("spotbugs produced no report: %w", err)
	}
	log, err := sarif.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("spotbugs: %w", err)
	}

	raw := &engine.RawOutput{Tool: a.Identity(), Language: language}
	for _, fr := range sarif.Flatten(log) {
		raw.Findings = append(raw.Findings, engine.RawFinding{
			File:     fr.File,
			Line:     fr.Line,
			Column:   fr.Column,
			RuleID:   fr.RuleID,
			RuleName: fr.RuleName,
			Message:  fr.Message,
			Severity: fr.Level,
			Snippet:  fr.Snippet,
		})
	}
	return raw, nil
}

func hasClassFiles(dir string) bool {
	found := false
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(path, ".class") {
			found = true
		}
		return nil
	})
	return found
}

func (a *SpotBugsAdapter) MapSeverity(raw string) engine.Severity {
	return sarifLevelSeverity(raw)
}
