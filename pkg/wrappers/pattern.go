package wrappers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/detect"
	"github.com/user/sastbridge/pkg/engine"
)

// patternRule is one line-level signature. Score is on the 0-10
// security-severity scale and doubles as the rule's native severity.
type patternRule struct {
	RuleID   string
	RuleName string
	Message  string
	Score    float64
	Pattern  *regexp.Regexp
}

var patternRules = map[string][]patternRule{
	"c": {
		{"CWE-119", "Buffer Overflow", "Unbounded copy into a fixed-size buffer", 8.0,
			regexp.MustCompile(`\b(strcpy|strcat|sprintf)\s*\(`)},
		{"CWE-119", "Buffer Overflow", "gets() can never be used safely", 9.0,
			regexp.MustCompile(`\bgets\s*\(`)},
		{"CWE-78", "Command Injection", "Shell command built from program data", 7.5,
			regexp.MustCompile(`\b(system|popen)\s*\(`)},
		{"CWE-134", "Format String", "printf-family call with a non-literal format", 5.0,
			regexp.MustCompile(`\b(printf|fprintf|syslog)\s*\(\s*[a-zA-Z_]`)},
	},
	"java": {
		{"CWE-78", "Command Injection", "Runtime.exec with a composed command", 7.5,
			regexp.MustCompile(`Runtime\s*\.\s*getRuntime\s*\(\s*\)\s*\.\s*exec\s*\(`)},
		{"CWE-89", "SQL Injection", "SQL statement assembled by string concatenation", 8.0,
			regexp.MustCompile(`(executeQuery|executeUpdate|execute)\s*\(\s*".*"\s*\+`)},
		{"CWE-502", "Unsafe Deserialization", "ObjectInputStream on untrusted data", 7.0,
			regexp.MustCompile(`new\s+ObjectInputStream\s*\(`)},
	},
	"python": {
		{"CWE-94", "Code Injection", "eval/exec on dynamic input", 8.0,
			regexp.MustCompile(`\b(eval|exec)\s*\(`)},
		{"CWE-78", "Command Injection", "subprocess invoked through a shell", 7.5,
			regexp.MustCompile(`shell\s*=\s*True`)},
		{"CWE-502", "Unsafe Deserialization", "pickle.loads on untrusted data", 7.0,
			regexp.MustCompile(`\bpickle\.loads?\s*\(`)},
		{"CWE-327", "Weak Hash", "MD5/SHA1 used for security purposes", 4.5,
			regexp.MustCompile(`hashlib\.(md5|sha1)\s*\(`)},
	},
	"javascript": {
		{"CWE-94", "Code Injection", "eval on dynamic input", 8.0,
			regexp.MustCompile(`\beval\s*\(`)},
		{"CWE-79", "Cross-Site Scripting", "innerHTML assignment from program data", 6.0,
			regexp.MustCompile(`\.innerHTML\s*=`)},
		{"CWE-78", "Command Injection", "child_process exec with a composed command", 7.5,
			regexp.MustCompile(`child_process.*\bexec\s*\(|\bexecSync\s*\(`)},
	},
}

func init() {
	// C++ shares the C signature set.
	patternRules["cpp"] = patternRules["c"]
}

// PatternAdapter is the built-in lightweight analyzer that runs for every
// detected language as a low-cost supplement. It needs no external
// binary, which also makes it the one adapter that always contributes.
type PatternAdapter struct {
	Log *zap.SugaredLogger
}

func NewPatternAdapter(log *zap.SugaredLogger) *PatternAdapter {
	return &PatternAdapter{Log: log}
}

func (a *PatternAdapter) Identity() engine.ToolIdentity {
	return engine.ToolIdentity{Name: "Pattern Scan", Version: "1.0.0", InfoURI: "https://github.com/user/sastbridge"}
}

func (a *PatternAdapter) Available() bool { return true }

func (a *PatternAdapter) Run(ctx context.Context, projectRoot, language string) (*engine.RawOutput, error) {
	rules := patternRules[language]
	raw := &engine.RawOutput{Tool: a.Identity(), Language: language}
	if len(rules) == 0 {
		return raw, nil
	}

	for _, file := range detect.FilesByLanguage(projectRoot, language) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings, err := a.scanFile(file, rules)
		if err != nil {
			a.Log.Warnw("pattern scan skipping unreadable file", "file", file, "error", err)
			continue
		}
		raw.Findings = append(raw.Findings, findings...)
	}
	return raw, nil
}

func (a *PatternAdapter) scanFile(path string, rules []patternRule) ([]engine.RawFinding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var findings []engine.RawFinding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		for _, rule := range rules {
			loc := rule.Pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			findings = append(findings, engine.RawFinding{
				File:     path,
				Line:     lineNo,
				Column:   loc[0] + 1,
				RuleID:   rule.RuleID,
				RuleName: rule.RuleName,
				Message:  fmt.Sprintf("%s: %s", rule.RuleName, rule.Message),
				Severity: strconv.FormatFloat(rule.Score, 'f', 1, 64),
				Snippet:  trimmed,
			})
		}
	}
	return findings, scanner.Err()
}

// MapSeverity maps the 0-10 security-severity score onto the canonical
// scale the way Semgrep scores are conventionally bucketed.
func (a *PatternAdapter) MapSeverity(raw string) engine.Severity {
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return engine.SeverityWarning
	}
	switch {
	case score >= 7.0:
		return engine.SeverityError
	case score >= 4.0:
		return engine.SeverityWarning
	default:
		return engine.SeverityNote
	}
}
