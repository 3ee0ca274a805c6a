package wrappers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/sarif"
)

// query suites per CodeQL extractor language
var codeqlSuites = map[string]string{
	"cpp":        "codeql/cpp-queries:codeql-suites/cpp-security-and-quality.qls",
	"java":       "codeql/java-queries:codeql-suites/java-security-and-quality.qls",
	"python":     "codeql/python-queries:codeql-suites/python-security-and-quality.qls",
	"javascript": "codeql/javascript-queries:codeql-suites/javascript-security-and-quality.qls",
}

// CodeQLAdapter drives the CodeQL CLI: create a database for the project
// (tracing the synthesized build for compiled languages), analyze it with
// the security-and-quality suite, and parse the SARIF it emits.
type CodeQLAdapter struct {
	Log *zap.SugaredLogger
}

func NewCodeQLAdapter(log *zap.SugaredLogger) *CodeQLAdapter {
	return &CodeQLAdapter{Log: log}
}

func (a *CodeQLAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "CodeQL", InfoURI: "https://codeql.github.com"}
}

func (a *CodeQLAdapter) Available() bool {
	_, err := exec.LookPath("codeql")
	return err == nil
}

func (a *CodeQLAdapter) Run(ctx context.Context, projectRoot, language string) (*engine.RawOutput, error) {
	return a.RunWithBuild(ctx, projectRoot, language, nil)
}

func (a *CodeQLAdapter) RunWithBuild(ctx context.Context, projectRoot, language string, plan *engine.CompilePlan) (*engine.RawOutput, error) {
	extractor := language
	if extractor == "c" {
		extractor = "cpp"
	}
	suite, ok := codeqlSuites[extractor]
	if !ok {
		return nil, fmt.Errorf("codeql: unsupported language %q", language)
	}

	workDir, err := os.MkdirTemp("", "codeql-")
	if err != nil {
		return nil, fmt.Errorf("codeql: temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	dbPath := filepath.Join(workDir, "db")
	if err := a.createDatabase(ctx, projectRoot, extractor, dbPath, plan); err != nil {
		if plan == nil {
			return nil, err
		}
		// Build failure degrades to an empty-build-context attempt.
		a.Log.Warnw("codeql build-traced database creation failed, retrying without build", "language", language, "error", err)
		os.RemoveAll(dbPath)
		if err := a.createDatabase(ctx, projectRoot, extractor, dbPath, nil); err != nil {
			return nil, err
		}
	}

	outPath := filepath.Join(workDir, "results.sarif")
	threads := strconv.Itoa(max(1, runtime.NumCPU()/2))
	_, stderr, code, err := runCommand(ctx, projectRoot, "codeql",
		"database", "analyze", dbPath,
		"--format=sarif-latest",
		"--threads", threads,
		"--output", outPath,
		"--sarif-category", extractor,
		suite,
	)
	if err != nil {
		return nil, fmt.Errorf("codeql analyze: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("codeql analyze exited %d: %s", code, tail(stderr))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("codeql: read results: %w", err)
	}
	log, err := sarif.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("codeql: %w", err)
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

func (a *CodeQLAdapter) createDatabase(ctx context.Context, projectRoot, extractor, dbPath string, plan *engine.CompilePlan) error {
	args := []string{
		"database", "create", dbPath,
		"-s", projectRoot,
		"-l", extractor,
		"--threads", strconv.Itoa(max(1, runtime.NumCPU()/2)),
	}
	if plan != nil {
		for _, cmd := range plan.Commands() {
			args = append(args, "--command", strings.Join(cmd, " "))
		}
	}

	_, stderr, code, err := runCommand(ctx, projectRoot, "codeql", args...)
	if err != nil {
		return fmt.Errorf("codeql database create: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("codeql database create exited %d: %s", code, tail(stderr))
	}
	return nil
}

func (a *CodeQLAdapter) MapSeverity(raw string) engine.Severity {
	return sarifLevelSeverity(raw)
}

// sarifLevelSeverity maps a SARIF level string onto the canonical scale,
// shared by the SARIF-emitting adapters.
func sarifLevelSeverity(level string) engine.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return engine.SeverityError
	case "note", "none":
		return engine.SeverityNote
	default:
		return engine.SeverityWarning
	}
}

// tail trims long tool output down to something loggable.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 500 {
		return s
	}
	return "..." + s[len(s)-500:]
}
