package reach

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
)

// queryTimeout bounds one full oracle invocation, container start to
// call graph parse.
const queryTimeout = 5 * time.Minute

// oracle is one language-specific reachability backend.
type oracle interface {
	supports(lang string) bool
	query(ctx context.Context, projectRoot string, f engine.Finding) (*engine.Reachability, error)
}

// Augmenter attaches reachability evidence to findings. Every query
// runs in its own throwaway container; a failed query degrades the
// single finding it belongs to and never aborts the batch.
type Augmenter struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	oracles []oracle
}

func NewAugmenter(cfg *config.Config, log *zap.SugaredLogger) *Augmenter {
	return &Augmenter{
		cfg: cfg,
		log: log,
		oracles: []oracle{
			&svfOracle{log: log},
			&sootupOracle{log: log},
		},
	}
}

// Augment evaluates reachability for each finding in place. With the
// feature disabled every finding is marked not-evaluated. Order of the
// input slice is preserved.
func (a *Augmenter) Augment(ctx context.Context, projectRoot string, findings []engine.Finding) {
	if !a.cfg.EnableReachability {
		for i := range findings {
			findings[i].AttachReachability(engine.NotEvaluated())
		}
		return
	}
	if !dockerAvailable() {
		a.log.Warnw("docker not found, skipping reachability analysis")
		for i := range findings {
			findings[i].AttachReachability(engine.NotEvaluated())
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i := range findings {
		g.Go(func() error {
			findings[i].AttachReachability(a.evaluate(gctx, projectRoot, findings[i]))
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Augmenter) evaluate(ctx context.Context, projectRoot string, f engine.Finding) *engine.Reachability {
	o := a.oracleFor(f.Language)
	if o == nil {
		return engine.NotSupported(f.Language)
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	r, err := o.query(qctx, projectRoot, f)
	if err != nil {
		a.log.Warnw("reachability query failed",
			"file", f.FilePath, "line", f.Line, "rule", f.RuleID, "error", err)
		return &engine.Reachability{
			Evaluated: true,
			Supported: true,
			Reachable: false,
			CallStack: []string{fmt.Sprintf("analysis failed: %v", err)},
			DataFlow:  []string{},
		}
	}
	return r
}

func (a *Augmenter) oracleFor(lang string) oracle {
	for _, o := range a.oracles {
		if o.supports(lang) {
			return o
		}
	}
	return nil
}

// relativeInProject maps a finding path, which may be absolute or
// already include the project directory name, to a path usable inside
// the container's /src mount.
func relativeInProject(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(projectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
		return filepath.Base(path)
	}
	base := filepath.Base(projectRoot)
	if strings.HasPrefix(path, base+string(filepath.Separator)) {
		return strings.TrimPrefix(path, base+string(filepath.Separator))
	}
	return path
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
