package reach

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
)

const sootupImage = "sootup/sootup"

// sootupOracle answers reachability queries for Java findings with the
// SootUp CLI's call-graph reachability analysis.
type sootupOracle struct {
	log *zap.SugaredLogger
}

func (o *sootupOracle) supports(lang string) bool {
	return lang == "java"
}

func (o *sootupOracle) query(ctx context.Context, projectRoot string, f engine.Finding) (*engine.Reachability, error) {
	c, err := startContainer(ctx, sootupImage, projectRoot, o.log)
	if err != nil {
		return nil, err
	}
	defer c.close()

	rel := relativeInProject(projectRoot, f.FilePath)
	className := strings.TrimSuffix(filepath.Base(rel), ".java")

	// Compilation is best effort: SootUp works from source when no
	// class files exist, but fresh bytecode gives sharper results.
	if out, code, err := c.execInDir(ctx, "/tmp", "javac", "-d", "/tmp/classes", "/src/"+rel); err != nil {
		return nil, err
	} else if code != 0 {
		o.log.Debugw("sootup javac failed, analyzing from source", "file", rel, "output", firstLine(out))
	}

	out, code, err := c.execIn(ctx, "java", "-jar", "/opt/sootup/sootup-cli.jar",
		"--input-dir", "/src",
		"--class-name", className,
		"--analysis", "reachability")
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("sootup analysis failed: %s", firstLine(out))
	}

	reachable := false
	var stack []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Reachable") {
			reachable = true
			continue
		}
		if reachable && strings.HasPrefix(line, "->") {
			stack = append(stack, strings.TrimSpace(strings.TrimPrefix(line, "->")))
		}
	}
	if !reachable {
		return &engine.Reachability{
			Evaluated: true,
			Supported: true,
			Reachable: false,
			CallStack: []string{"class " + className + " not reachable from entry points"},
			DataFlow:  []string{},
		}, nil
	}
	if len(stack) == 0 {
		stack = []string{className}
	}
	return &engine.Reachability{
		Evaluated: true,
		Supported: true,
		Reachable: true,
		CallStack: stack,
		DataFlow:  []string{fmtLocation(f)},
	}, nil
}

func fmtLocation(f engine.Finding) string {
	return fmt.Sprintf("%s:%d", f.FilePath, f.Line)
}
