package wrappers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJoernOutputSkipsLogNoise(t *testing.T) {
	out := `Compiling /tmp/query_0.sc
Some other banner line
[{"function":"strcpy","file":"vuln.c","line":12,"code":"strcpy(dst, src)"}]
Done.
`
	q := joernQueries[0]
	findings := parseJoernOutput(out, q)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "vuln.c", f.File)
	assert.Equal(t, 12, f.Line)
	assert.Equal(t, "CWE-119", f.RuleID)
	assert.Equal(t, "warning", f.Severity)
	assert.Contains(t, f.Message, "strcpy(dst, src)")
}

func TestParseJoernOutputWrappedResponse(t *testing.T) {
	out := `{"response":[{"function":"free","file":"a.c","line":7,"code":"free(p)"}]}`
	findings := parseJoernOutput(out, joernQueries[1])
	require.Len(t, findings, 1)
	assert.Equal(t, "CWE-416", findings[0].RuleID)
	assert.Equal(t, 7, findings[0].Line)
}

func TestParseJoernOutputEmpty(t *testing.T) {
	assert.Empty(t, parseJoernOutput("nothing useful here\n", joernQueries[0]))
	assert.Empty(t, parseJoernOutput("[]", joernQueries[0]))
}

func TestBanditSeverityTable(t *testing.T) {
	a := NewBanditAdapter(nil)
	assert.Equal(t, "error", string(a.MapSeverity("HIGH")))
	assert.Equal(t, "warning", string(a.MapSeverity("MEDIUM")))
	assert.Equal(t, "note", string(a.MapSeverity("LOW")))
	assert.Equal(t, "warning", string(a.MapSeverity("whatever")))
}
