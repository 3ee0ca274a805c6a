// Package pipeline composes the scan stages: language detection, tool
// dispatch, normalization, reachability augmentation, patch
// verification, and report synthesis.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/detect"
	"github.com/user/sastbridge/pkg/dispatch"
	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/gitinfo"
	"github.com/user/sastbridge/pkg/history"
	"github.com/user/sastbridge/pkg/normalize"
	"github.com/user/sastbridge/pkg/reach"
	"github.com/user/sastbridge/pkg/report"
	"github.com/user/sastbridge/pkg/verify"
)

// Summary is what a completed scan reports back to the caller.
type Summary struct {
	Languages []string
	Findings  []engine.Finding
	ByTool    map[string]int
	Verified  int
	OutputDir string
}

// Progress receives stage transitions for display. It may be nil.
type Progress func(stage, detail string)

// Pipeline runs scans end to end. The registry is injectable so tests
// can scan with a reduced tool set.
type Pipeline struct {
	Cfg      *config.Config
	Log      *zap.SugaredLogger
	Registry *dispatch.Registry
	Progress Progress
}

func New(cfg *config.Config, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		Cfg:      cfg,
		Log:      log,
		Registry: dispatch.DefaultRegistry(log),
	}
}

func (p *Pipeline) progress(stage, detail string) {
	if p.Progress != nil {
		p.Progress(stage, detail)
	}
}

// Run scans projectRoot and writes SARIF reports into outDir. Only
// report I/O failures are fatal; everything else degrades per tool or
// per finding.
func (p *Pipeline) Run(ctx context.Context, projectRoot, outDir string) (*Summary, error) {
	p.progress("detect", "")
	languages := detect.Languages(projectRoot)
	if len(languages) == 0 {
		p.Log.Warnw("no supported languages detected", "project", projectRoot)
	} else {
		p.Log.Infow("languages detected", "languages", languages)
	}
	p.progress("detect", fmt.Sprintf("%v", languages))

	p.progress("scan", "")
	d := dispatch.New(p.Registry, p.Cfg, p.Log)
	results := d.Dispatch(ctx, projectRoot, languages)

	p.progress("normalize", "")
	norm := normalize.New(p.Log)
	var findings []engine.Finding
	var runs []report.ToolRun
	seenTool := make(map[string]bool)
	for _, r := range results {
		id := r.Adapter.Identity()
		if !seenTool[id.Name] {
			seenTool[id.Name] = true
			runs = append(runs, report.ToolRun{
				Tool:       id,
				Succeeded:  r.Output != nil,
				FinishedAt: time.Now().UTC(),
			})
		} else if r.Output != nil {
			// A tool that succeeded for any language counts as succeeded.
			for i := range runs {
				if runs[i].Tool.Name == id.Name {
					runs[i].Succeeded = true
				}
			}
		}
		if r.Output == nil {
			continue
		}
		findings = append(findings, norm.Convert(r.Adapter, r.Output, projectRoot)...)
	}

	if p.Cfg.EnableReachability {
		p.progress("reachability", fmt.Sprintf("%d findings", len(findings)))
	}
	aug := reach.NewAugmenter(p.Cfg, p.Log)
	aug.Augment(ctx, projectRoot, findings)

	verified := 0
	if p.Cfg.EnableLLM && len(findings) > 0 {
		p.progress("verify", fmt.Sprintf("%d findings", len(findings)))
		v, err := verify.NewVerifier(ctx, p.Cfg, p.Log)
		if err != nil {
			p.Log.Warnw("verification unavailable", "error", err)
			for i := range findings {
				findings[i].AttachVerdict(engine.FailedVerdict(fmt.Sprintf("verifier unavailable: %v", err)))
			}
		} else {
			defer v.Close()
			v.Verify(ctx, projectRoot, findings)
		}
		for _, f := range findings {
			if f.Verdict != nil && f.Verdict.IsValid {
				verified++
			}
		}
	}

	p.progress("report", outDir)
	builder := &report.Builder{
		Provenance: gitinfo.Provenance(projectRoot),
		Log:        p.Log,
	}
	logs := builder.Build(findings, runs)
	order := make([]string, 0, len(runs))
	for _, r := range runs {
		order = append(order, r.Tool.Name)
	}
	if err := report.Write(outDir, logs, order); err != nil {
		return nil, err
	}

	byTool := make(map[string]int)
	for _, f := range findings {
		byTool[f.Tool.Name]++
	}
	if err := history.Append(outDir, history.Entry{
		Time:           time.Now().UTC(),
		Project:        projectRoot,
		Languages:      languages,
		FindingsByTool: byTool,
		Verified:       verified,
	}); err != nil {
		p.Log.Warnw("history not recorded", "error", err)
	}

	return &Summary{
		Languages: languages,
		Findings:  findings,
		ByTool:    byTool,
		Verified:  verified,
		OutputDir: outDir,
	}, nil
}
