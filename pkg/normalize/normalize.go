package normalize

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
)

// Normalizer converts raw adapter output into canonical Findings. The
// conversion is pure per record: malformed records are skipped with a
// warning, everything else flows through.
type Normalizer struct {
	Log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Normalizer {
	return &Normalizer{Log: log}
}

// Convert maps every well-formed record of out into a Finding. A nil or
// empty output yields an empty slice, never an error.
func (n *Normalizer) Convert(adapter engine.Adapter, out *engine.RawOutput, projectRoot string) []engine.Finding {
	if out == nil {
		return nil
	}

	findings := make([]engine.Finding, 0, len(out.Findings))
	for _, r := range out.Findings {
		if r.RuleID == "" || r.File == "" {
			n.Log.Warnw("skipping malformed record",
				"tool", out.Tool.Name, "rule", r.RuleID, "file", r.File)
			continue
		}

		line := r.Line
		if line < 1 {
			line = 1
		}
		col := r.Column
		if col < 1 {
			col = 1
		}
		name := r.RuleName
		if name == "" {
			name = r.RuleID
		}

		sev := adapter.MapSeverity(r.Severity)
		if !sev.Valid() {
			sev = engine.SeverityWarning
		}

		findings = append(findings, engine.Finding{
			FilePath: RelativePath(projectRoot, r.File),
			Line:     line,
			Column:   col,
			RuleID:   r.RuleID,
			RuleName: name,
			Message:  r.Message,
			Severity: sev,
			Language: out.Language,
			Snippet:  r.Snippet,
			Tool:     out.Tool,
		})
	}
	return findings
}

// RelativePath rewrites p relative to the project's parent directory, so
// the project directory name stays in the path. Paths that cannot be
// made relative, or that would escape the parent, keep their original
// form; location resolution never fails.
func RelativePath(projectRoot, p string) string {
	parent := filepath.Dir(filepath.Clean(projectRoot))

	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(projectRoot, p)
	}

	rel, err := filepath.Rel(parent, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}
