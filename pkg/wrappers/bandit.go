package wrappers

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
)

// BanditAdapter runs Bandit over the project's Python sources and parses
// its JSON report. Bandit exits 1 when it finds issues; only other
// non-zero codes are treated as failures.
type BanditAdapter struct {
	Log *zap.SugaredLogger
}

func NewBanditAdapter(log *zap.SugaredLogger) *BanditAdapter {
	return &BanditAdapter{Log: log}
}

func (a *BanditAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "Bandit", InfoURI: "https://bandit.readthedocs.io"}
}

func (a *BanditAdapter) Available() bool {
	_, err := exec.LookPath("bandit")
	return err == nil
}

type banditReport struct {
	Results []struct {
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
		IssueText       string `json:"issue_text"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		Code            string `json:"code"`
	} `json:"results"`
}

func (a *BanditAdapter) Run(ctx context.Context, projectRoot, language string) (*engine.RawOutput, error) {
	// Bandit logs to stderr and prints the JSON report on stdout; only
	// stdout is parseable.
	stdout, stderr, code, err := runCommand(ctx, projectRoot, "bandit", "-r", projectRoot, "-f", "json", "-ll")
	if err != nil {
		return nil, fmt.Errorf("bandit: %w", err)
	}
	if code != 0 && code != 1 {
		return nil, fmt.Errorf("bandit exited %d: %s", code, tail(stderr))
	}
	if stderr != "" {
		a.Log.Debugw("bandit diagnostics", "output", tail(stderr))
	}

	var report banditReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		return nil, fmt.Errorf("bandit: decode report: %w", err)
	}

	raw := &engine.RawOutput{Tool: a.Identity(), Language: language}
	for _, r := range report.Results {
		raw.Findings = append(raw.Findings, engine.RawFinding{
			File:     r.Filename,
			Line:     r.LineNumber,
			RuleID:   r.TestID,
			RuleName: r.TestName,
			Message:  r.IssueText,
			Severity: r.IssueSeverity,
			Snippet:  r.Code,
		})
	}
	return raw, nil
}

func (a *BanditAdapter) MapSeverity(raw string) engine.Severity {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HIGH":
		return engine.SeverityError
	case "LOW":
		return engine.SeverityNote
	default:
		return engine.SeverityWarning
	}
}
