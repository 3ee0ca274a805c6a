package verify

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
)

const verdictTimeout = 2 * time.Minute

// Verifier asks an LLM backend whether each finding is a genuine
// vulnerability and for a candidate patch. Each finding gets exactly
// one attempt; any failure becomes a conservative failed verdict on
// that finding alone.
type Verifier struct {
	cfg      *config.Config
	provider Provider
	log      *zap.SugaredLogger
}

func NewVerifier(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Verifier, error) {
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg, provider: p, log: log}, nil
}

func (v *Verifier) Close() {
	v.provider.Close()
}

// Verify attaches a verdict to every finding in place.
func (v *Verifier) Verify(ctx context.Context, projectRoot string, findings []engine.Finding) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Workers)
	for i := range findings {
		g.Go(func() error {
			findings[i].AttachVerdict(v.verdict(gctx, projectRoot, findings[i]))
			return nil
		})
	}
	_ = g.Wait()
}

func (v *Verifier) verdict(ctx context.Context, projectRoot string, f engine.Finding) *engine.PatchVerdict {
	code, err := codeWindow(projectRoot, f.FilePath, f.Line, v.cfg.ContextLines)
	if err != nil {
		v.log.Warnw("cannot read source for verification",
			"file", f.FilePath, "line", f.Line, "error", err)
		return engine.FailedVerdict(fmt.Sprintf("source unavailable: %v", err))
	}

	p := buildPrompt(f, code)

	cctx, cancel := context.WithTimeout(ctx, verdictTimeout)
	defer cancel()

	raw, err := v.provider.Complete(cctx, p.system, p.human)
	if err != nil {
		v.log.Warnw("verification request failed",
			"file", f.FilePath, "rule", f.RuleID, "error", err)
		return engine.FailedVerdict(fmt.Sprintf("verification failed: %v", err))
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		v.log.Warnw("verification response unparsable",
			"file", f.FilePath, "rule", f.RuleID, "error", err)
		return engine.FailedVerdict("verification response unparsable")
	}
	return verdict
}

// codeWindow returns the source lines around line, each prefixed with
// its number and the target line marked with ">>> ".
func codeWindow(projectRoot, path string, line, contextLines int) (string, error) {
	full := resolvePath(projectRoot, path)
	fh, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	start := line - contextLines
	if start < 1 {
		start = 1
	}
	end := line + contextLines

	var b strings.Builder
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if n < start {
			continue
		}
		if n > end {
			break
		}
		marker := "    "
		if n == line {
			marker = ">>> "
		}
		fmt.Fprintf(&b, "%s%4d: %s\n", marker, n, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if n < line {
		return "", fmt.Errorf("line %d past end of %s", line, path)
	}
	return b.String(), nil
}

// resolvePath undoes the normalizer's project-relative form, which
// keeps the project directory name as its first component.
func resolvePath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	base := filepath.Base(projectRoot)
	if strings.HasPrefix(path, base+string(filepath.Separator)) {
		return filepath.Join(filepath.Dir(projectRoot), path)
	}
	return filepath.Join(projectRoot, path)
}
