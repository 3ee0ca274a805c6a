package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/logging"
)

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), config.Overrides{})
	require.NoError(t, err)
	cfg.EnableLLM = true
	cfg.LLMProvider = "openai"
	cfg.LLMURL = url
	cfg.LLMModel = "test-model"
	return cfg
}

func writeSource(t *testing.T) (string, engine.Finding) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(root, 0o755))
	src := "#include <string.h>\n\nvoid f(char *d, char *s) {\n    strcpy(d, s);\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.c"), []byte(src), 0o644))
	return root, engine.Finding{
		FilePath: "proj/main.c", Line: 4, Column: 5,
		RuleID: "CWE-119", RuleName: "Buffer Overflow",
		Message: "unbounded copy", Severity: engine.SeverityError,
		Language: "c",
	}
}

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		resp := `{"choices":[{"message":{"role":"assistant","content":` + jsonString(reply) + `}}]}`
		_, _ = w.Write([]byte(resp))
	}))
}

func jsonString(s string) string {
	b := new(strings.Builder)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func TestVerifyValidVerdict(t *testing.T) {
	srv := chatServer(t, `{"is_valid": true, "confidence": 0.85, "patch_code": "strncpy(d, s, 16);", "explanation": "bounded copy"}`)
	defer srv.Close()

	root, f := writeSource(t)
	v, err := NewVerifier(context.Background(), testConfig(t, srv.URL), logging.Nop())
	require.NoError(t, err)
	defer v.Close()

	findings := []engine.Finding{f}
	v.Verify(context.Background(), root, findings)

	verdict := findings[0].Verdict
	require.NotNil(t, verdict)
	assert.True(t, verdict.IsValid)
	assert.InDelta(t, 0.85, verdict.Confidence, 1e-9)
	assert.Equal(t, "strncpy(d, s, 16);", verdict.Patch)
}

func TestVerifyUnparsableResponse(t *testing.T) {
	srv := chatServer(t, "I think this might be a problem but I cannot say.")
	defer srv.Close()

	root, f := writeSource(t)
	v, err := NewVerifier(context.Background(), testConfig(t, srv.URL), logging.Nop())
	require.NoError(t, err)
	defer v.Close()

	findings := []engine.Finding{f}
	v.Verify(context.Background(), root, findings)

	verdict := findings[0].Verdict
	require.NotNil(t, verdict)
	assert.False(t, verdict.IsValid)
	assert.Zero(t, verdict.Confidence)
}

func TestVerifyMissingSource(t *testing.T) {
	srv := chatServer(t, `{"is_valid": true, "confidence": 1.0, "explanation": "x"}`)
	defer srv.Close()

	v, err := NewVerifier(context.Background(), testConfig(t, srv.URL), logging.Nop())
	require.NoError(t, err)
	defer v.Close()

	findings := []engine.Finding{{FilePath: "proj/gone.c", Line: 1, RuleID: "r", Language: "c"}}
	v.Verify(context.Background(), t.TempDir(), findings)

	verdict := findings[0].Verdict
	require.NotNil(t, verdict)
	assert.False(t, verdict.IsValid)
}

func TestParseVerdictToleratesFences(t *testing.T) {
	v, err := parseVerdict("```json\n{\"is_valid\": false, \"confidence\": 0.2, \"explanation\": \"benign\"}\n```")
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.InDelta(t, 0.2, v.Confidence, 1e-9)
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	v, err := parseVerdict(`{"is_valid": true, "confidence": 3.5, "explanation": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Confidence)
}

func TestCodeWindowMarksTargetLine(t *testing.T) {
	root, f := writeSource(t)
	code, err := codeWindow(root, f.FilePath, f.Line, 1)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], ">>> "))
	assert.Contains(t, lines[1], "strcpy(d, s);")
	assert.False(t, strings.HasPrefix(lines[0], ">>> "))
}

func TestCodeWindowPastEOF(t *testing.T) {
	root, f := writeSource(t)
	f.Line = 999
	_, err := codeWindow(root, f.FilePath, f.Line, 2)
	assert.Error(t, err)
}

func TestBuildPromptSelectsTemplate(t *testing.T) {
	_, f := writeSource(t)

	basic := buildPrompt(f, "code")
	assert.NotContains(t, basic.human, "Reachability")
	assert.Contains(t, basic.human, "CWE-119")

	f.Reachability = &engine.Reachability{Evaluated: true, Supported: true, Reachable: true, CallStack: []string{"main", "f"}}
	enhanced := buildPrompt(f, "code")
	assert.Contains(t, enhanced.human, "Reachable from entry point: true")
	assert.Contains(t, enhanced.human, "main -> f")
	assert.NotContains(t, enhanced.human, "{{")
}

func TestBuildPromptUnsupportedLanguageUsesBasicTemplate(t *testing.T) {
	_, f := writeSource(t)
	f.Language = "python"
	f.Reachability = engine.NotSupported("python")

	p := buildPrompt(f, "code")
	// Findings from languages without an oracle must not be presented
	// as unreachable.
	assert.NotContains(t, p.human, "Reachable from entry point")
	assert.Contains(t, p.human, "CWE-119")
	assert.NotContains(t, p.human, "{{")
}
