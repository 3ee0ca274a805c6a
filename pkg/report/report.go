// Package report synthesizes SARIF 2.1.0 documents from normalized
// findings: one report per tool plus a merged report of every run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/sarif"
)

// ToolRun captures one tool's outcome for report metadata.
type ToolRun struct {
	Tool       engine.ToolIdentity
	Succeeded  bool
	FinishedAt time.Time
}

// Builder assembles SARIF runs from findings and execution metadata.
type Builder struct {
	Provenance *sarif.VersionControlDetails
	Log        *zap.SugaredLogger
}

// Build groups findings by tool, in first-appearance order, and emits
// one SARIF run per tool. Tools listed in runs but absent from the
// findings still get an empty run so failures stay visible.
func (b *Builder) Build(findings []engine.Finding, runs []ToolRun) map[string]*sarif.Log {
	order := make([]string, 0, len(runs))
	byTool := make(map[string][]engine.Finding)
	meta := make(map[string]ToolRun, len(runs))
	for _, r := range runs {
		if _, ok := meta[r.Tool.Name]; !ok {
			order = append(order, r.Tool.Name)
		}
		meta[r.Tool.Name] = r
	}
	for _, f := range findings {
		if _, ok := meta[f.Tool.Name]; !ok {
			order = append(order, f.Tool.Name)
			meta[f.Tool.Name] = ToolRun{Tool: f.Tool, Succeeded: true, FinishedAt: time.Now().UTC()}
		}
		byTool[f.Tool.Name] = append(byTool[f.Tool.Name], f)
	}

	logs := make(map[string]*sarif.Log, len(order))
	for _, name := range order {
		run := b.buildRun(meta[name], byTool[name])
		logs[name] = sarif.NewLog([]sarif.Run{run})
		b.Log.Debugw("built report run", "tool", name,
			"results", len(run.Results), "succeeded", meta[name].Succeeded)
	}
	return logs
}

func (b *Builder) buildRun(tr ToolRun, findings []engine.Finding) sarif.Run {
	ruleIndex := make(map[string]int)
	var rules []sarif.Rule
	results := make([]sarif.Result, 0, len(findings))

	for _, f := range findings {
		if _, ok := ruleIndex[f.RuleID]; !ok {
			ruleIndex[f.RuleID] = len(rules)
			rules = append(rules, sarif.Rule{
				ID:               f.RuleID,
				ShortDescription: &sarif.Message{Text: f.RuleName},
			})
		}
		results = append(results, b.buildResult(f))
	}

	run := sarif.Run{
		Tool: sarif.Tool{Driver: sarif.Driver{
			Name:           tr.Tool.Name,
			Version:        tr.Tool.Version,
			InformationURI: tr.Tool.InfoURI,
			Rules:          rules,
		}},
		Results: results,
		Invocations: []sarif.Invocation{{
			ExecutionSuccessful: tr.Succeeded,
			EndTimeUTC:          tr.FinishedAt.UTC().Format(time.RFC3339),
		}},
	}
	if b.Provenance != nil {
		run.VersionControlProvenance = []sarif.VersionControlDetails{*b.Provenance}
	}
	return run
}

func (b *Builder) buildResult(f engine.Finding) sarif.Result {
	region := sarif.Region{StartLine: f.Line, StartColumn: f.Column}
	if f.Snippet != "" {
		region.Snippet = &sarif.ArtifactContent{Text: f.Snippet}
	}

	res := sarif.Result{
		RuleID:  f.RuleID,
		Level:   string(f.Severity),
		Message: sarif.Message{Text: f.Message},
		Locations: []sarif.Location{{
			PhysicalLocation: sarif.PhysicalLocation{
				ArtifactLocation: sarif.ArtifactLocation{URI: filepath.ToSlash(f.FilePath)},
				Region:           region,
			},
		}},
	}

	if r := f.Reachability; r != nil && r.Evaluated {
		res.Properties = map[string]any{
			"reachable": r.Reachable,
			"callStack": r.CallStack,
			"dataFlow":  r.DataFlow,
		}
	}

	if v := f.Verdict; v != nil && v.IsValid && v.Patch != "" {
		res.Fixes = []sarif.Fix{{
			Description: sarif.Message{
				Text: fmt.Sprintf("%s (confidence: %.2f)", v.Explanation, v.Confidence),
			},
			ArtifactChanges: []sarif.ArtifactChange{{
				ArtifactLocation: sarif.ArtifactLocation{URI: filepath.ToSlash(f.FilePath)},
				Replacements: []sarif.Replacement{{
					DeletedRegion:   sarif.Region{StartLine: f.Line, StartColumn: 1},
					InsertedContent: sarif.ArtifactContent{Text: v.Patch},
				}},
			}},
		}}
	}
	return res
}

// Merge folds per-tool logs into a single document, one run per tool,
// preserving the given tool order.
func Merge(logs map[string]*sarif.Log, order []string) *sarif.Log {
	var runs []sarif.Run
	for _, name := range order {
		if l, ok := logs[name]; ok {
			runs = append(runs, l.Runs...)
		}
	}
	if runs == nil {
		runs = []sarif.Run{}
	}
	return sarif.NewLog(runs)
}

// FileName derives the per-tool report file name from the tool name.
func FileName(toolName string) string {
	return strings.ReplaceAll(strings.ToLower(toolName), " ", "_") + ".sarif"
}

// Write persists every per-tool report plus merged.sarif into outDir.
// Writing is the one stage where failure is fatal to the scan.
func Write(outDir string, logs map[string]*sarif.Log, order []string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	for _, name := range order {
		l, ok := logs[name]
		if !ok {
			continue
		}
		if err := writeLog(filepath.Join(outDir, FileName(name)), l); err != nil {
			return err
		}
	}
	return writeLog(filepath.Join(outDir, "merged.sarif"), Merge(logs, order))
}

func writeLog(path string, l *sarif.Log) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
