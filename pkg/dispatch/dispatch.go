package dispatch

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
)

// Result is one adapter invocation's outcome. Output is nil when the
// tool was unavailable, timed out, or failed; the unit still appears so
// callers can see what ran.
type Result struct {
	Adapter  engine.Adapter
	Language string
	Output   *engine.RawOutput
}

// Dispatcher fans the detected languages out over the registry with
// fault isolation: no tool failure ever aborts the other tools.
type Dispatcher struct {
	Registry *Registry
	Config   *config.Config
	Log      *zap.SugaredLogger
}

func New(reg *Registry, cfg *config.Config, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{Registry: reg, Config: cfg, Log: log}
}

// Dispatch invokes every applicable, enabled adapter for every detected
// language on a bounded worker pool. Results come back in deterministic
// (language, registry) order regardless of completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, projectRoot string, languages []string) []Result {
	type unit struct {
		reg  Registration
		lang string
	}

	var units []unit
	for _, lang := range languages {
		for _, reg := range d.Registry.For(lang) {
			name := strings.ToLower(reg.Adapter.Identity().Name)
			if !d.Config.ToolEnabled(name) {
				d.Log.Debugw("tool disabled by configuration", "tool", name, "language", lang)
				continue
			}
			units = append(units, unit{reg: reg, lang: lang})
		}
	}

	results := make([]Result, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Config.Workers)

	for i, u := range units {
		g.Go(func() error {
			results[i] = d.runUnit(gctx, projectRoot, u.reg, u.lang)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) runUnit(ctx context.Context, projectRoot string, reg Registration, language string) Result {
	adapter := reg.Adapter
	name := adapter.Identity().Name
	res := Result{Adapter: adapter, Language: language}

	if !adapter.Available() {
		d.Log.Warnw("tool not available, skipping", "tool", name, "language", language)
		return res
	}

	timeout := d.Config.ToolTimeout(strings.ToLower(name), reg.DefaultTimeout)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out *engine.RawOutput
	var err error
	if ba, ok := adapter.(engine.BuildAwareAdapter); ok && reg.NeedsBuild {
		plan := SynthesizePlan(projectRoot, language)
		defer CleanupPlan(projectRoot, plan)
		out, err = ba.RunWithBuild(tctx, projectRoot, language, plan)
	} else {
		out, err = adapter.Run(tctx, projectRoot, language)
	}

	if err != nil {
		if tctx.Err() == context.DeadlineExceeded {
			d.Log.Warnw("tool timed out", "tool", name, "language", language, "timeout", timeout)
		} else {
			d.Log.Warnw("tool failed", "tool", name, "language", language, "error", err)
		}
		return res
	}

	res.Output = out
	d.Log.Infow("tool finished", "tool", name, "language", language, "findings", len(out.Findings))
	return res
}
