package sarif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
  "version": "2.1.0",
  "runs": [{
    "tool": {"driver": {
      "name": "demo",
      "rules": [
        {"id": "cpp/buffer-overflow",
         "shortDescription": {"text": "Buffer overflow"},
         "properties": {"security-severity": "8.1"}}
      ]
    }},
    "results": [
      {"ruleId": "cpp/buffer-overflow", "level": "error",
       "message": {"text": "overflow here"},
       "locations": [{"physicalLocation": {
         "artifactLocation": {"uri": "src/main.c"},
         "region": {"startLine": 12, "startColumn": 5,
                    "snippet": {"text": "strcpy(dst, src);"}}}}]},
      {"ruleId": "", "message": {"text": "no rule"},
       "locations": [{"physicalLocation": {
         "artifactLocation": {"uri": "src/x.c"}, "region": {"startLine": 1}}}]},
      {"ruleId": "cpp/other", "message": {"text": "no uri"},
       "locations": [{"physicalLocation": {
         "artifactLocation": {"uri": ""}, "region": {"startLine": 0}}}]}
    ]
  }]
}`

func TestParseAndFlatten(t *testing.T) {
	log, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, log.Runs, 1)

	flat := Flatten(log)
	require.Len(t, flat, 1)

	r := flat[0]
	assert.Equal(t, "src/main.c", r.File)
	assert.Equal(t, 12, r.Line)
	assert.Equal(t, 5, r.Column)
	assert.Equal(t, "cpp/buffer-overflow", r.RuleID)
	assert.Equal(t, "Buffer overflow", r.RuleName)
	assert.Equal(t, "8.1", r.SecuritySeverity)
	assert.Equal(t, "error", r.Level)
	assert.Equal(t, "strcpy(dst, src);", r.Snippet)
}

func TestFlattenClampsLine(t *testing.T) {
	log, err := Parse([]byte(`{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"d"}},
	  "results":[{"ruleId":"r","message":{"text":"m"},
	  "locations":[{"physicalLocation":{"artifactLocation":{"uri":"f"},"region":{"startLine":0}}}]}]}]}`))
	require.NoError(t, err)

	flat := Flatten(log)
	require.Len(t, flat, 1)
	assert.Equal(t, 1, flat[0].Line)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestNewLog(t *testing.T) {
	l := NewLog([]Run{{}})
	assert.Equal(t, Version, l.Version)
	assert.Equal(t, SchemaURI, l.Schema)
	assert.Len(t, l.Runs, 1)
}
