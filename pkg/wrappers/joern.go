package wrappers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
)

// joernQuery is one vulnerability query run against the code property graph.
type joernQuery struct {
	RuleID   string
	RuleName string
	Script   string
}

var joernQueries = []joernQuery{
	{
		RuleID:   "CWE-119",
		RuleName: "Buffer Overflow",
		Script: `cpg.call.name("(strcpy|strcat|memcpy|sprintf|gets).*").l.map { c =>
  Map(
    "function" -> c.name,
    "file" -> c.file.name.headOption.getOrElse("unknown"),
    "line" -> c.lineNumber.headOption.getOrElse(0),
    "code" -> c.code
  )
}.toJson
`,
	},
	{
		RuleID:   "CWE-416",
		RuleName: "Use After Free",
		Script: `cpg.call.name("free").l.map { c =>
  Map(
    "function" -> "free",
    "file" -> c.file.name.headOption.getOrElse("unknown"),
    "line" -> c.lineNumber.headOption.getOrElse(0),
    "code" -> c.code
  )
}.toJson
`,
	},
	{
		RuleID:   "CWE-476",
		RuleName: "NULL Pointer Dereference",
		Script: `cpg.call.name(".*").where(_.argument.code("NULL")).l.map { c =>
  Map(
    "function" -> c.name,
    "file" -> c.file.name.headOption.getOrElse("unknown"),
    "line" -> c.lineNumber.headOption.getOrElse(0),
    "code" -> c.code
  )
}.toJson
`,
	},
}

// JoernAdapter builds a code property graph with joern-parse and runs a
// fixed query set against it with the joern CLI. Native code only.
type JoernAdapter struct {
	Log *zap.SugaredLogger
}

func NewJoernAdapter(log *zap.SugaredLogger) *JoernAdapter {
	return &JoernAdapter{Log: log}
}

func (a *JoernAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "Joern", InfoURI: "https://joern.io"}
}

func (a *JoernAdapter) Available() bool {
	if _, err := exec.LookPath("joern-parse"); err != nil {
		return false
	}
	_, err := exec.LookPath("joern")
	return err == nil
}

func (a *JoernAdapter) Run(ctx context.Context, projectRoot, language string) (*engine.RawOutput, error) {
	workDir, err := os.MkdirTemp("", "joern-")
	if err != nil {
		return nil, fmt.Errorf("joern: temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	cpgPath := filepath.Join(workDir, "cpg.bin")
	_, stderr, code, err := runCommand(ctx, projectRoot, "joern-parse", projectRoot, "--output", cpgPath)
	if err != nil {
		return nil, fmt.Errorf("joern-parse: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("joern-parse exited %d: %s", code, tail(stderr))
	}
	if _, err := os.Stat(cpgPath); err != nil {
		return nil, fmt.Errorf("joern-parse produced no CPG")
	}

	raw := &engine.RawOutput{Tool: a.Identity(), Language: language}
	for i, q := range joernQueries {
		scriptPath := filepath.Join(workDir, fmt.Sprintf("query_%d.sc", i))
		if err := os.WriteFile(scriptPath, []byte(q.Script), 0644); err != nil {
			return nil, fmt.Errorf("joern: write query: %w", err)
		}

		stdout, stderr, code, err := runCommand(ctx, projectRoot, "joern", "--script", scriptPath, "--cpg", cpgPath)
		if err != nil {
			return nil, fmt.Errorf("joern %s: %w", q.RuleID, err)
		}
		if code != 0 {
			a.Log.Warnw("joern query failed", "rule", q.RuleID, "output", tail(stderr))
			continue
		}
		raw.Findings = append(raw.Findings, parseJoernOutput(stdout, q)...)
	}
	return raw, nil
}

// parseJoernOutput scans stdout for JSON lines; joern interleaves log
// noise with the query result, so anything that does not decode is skipped.
func parseJoernOutput(out string, q joernQuery) []engine.RawFinding {
	type joernHit struct {
		Function string `json:"function"`
		File     string `json:"file"`
		Line     int    `json:"line"`
		Code     string `json:"code"`
	}

	var hits []joernHit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "{") {
			continue
		}

		var batch []joernHit
		if err := json.Unmarshal([]byte(line), &batch); err == nil {
			hits = append(hits, batch...)
			continue
		}
		var wrapped struct {
			Response []joernHit `json:"response"`
		}
		if err := json.Unmarshal([]byte(line), &wrapped); err == nil {
			hits = append(hits, wrapped.Response...)
		}
	}

	findings := make([]engine.RawFinding, 0, len(hits))
	for _, h := range hits {
		findings = append(findings, engine.RawFinding{
			File:     h.File,
			Line:     h.Line,
			RuleID:   q.RuleID,
			RuleName: q.RuleName,
			Message:  fmt.Sprintf("%s: %s", q.RuleName, h.Code),
			Severity: "warning",
			Snippet:  h.Code,
		})
	}
	return findings
}

func (a *JoernAdapter) MapSeverity(raw string) engine.Severity {
	return sarifLevelSeverity(raw)
}
