package reach

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
)

const svfImage = "svf-tools/svf"

// svfOracle answers reachability queries for C and C++ findings by
// compiling the target file to LLVM bitcode and walking the Andersen
// call graph produced by SVF's wpa tool.
type svfOracle struct {
	log *zap.SugaredLogger
}

func (o *svfOracle) supports(lang string) bool {
	return lang == "c" || lang == "cpp"
}

var (
	dotEdge  = regexp.MustCompile(`(Node0x[0-9a-f]+)\s*->\s*(Node0x[0-9a-f]+)`)
	dotLabel = regexp.MustCompile(`(Node0x[0-9a-f]+)\s*\[.*?fun:\s*([A-Za-z_][A-Za-z0-9_]*)`)
)

// query runs the full SVF pipeline inside a fresh container. The
// finding's file is compiled to bitcode on its own, so the resulting
// call graph covers exactly the functions that file defines; the
// finding is considered reachable when main can reach any of them.
func (o *svfOracle) query(ctx context.Context, projectRoot string, f engine.Finding) (*engine.Reachability, error) {
	c, err := startContainer(ctx, svfImage, projectRoot, o.log)
	if err != nil {
		return nil, err
	}
	defer c.close()

	bc := "/tmp/" + strings.TrimSuffix(filepath.Base(f.FilePath), filepath.Ext(f.FilePath)) + ".bc"
	out, code, err := c.execIn(ctx, "clang", "-c", "-emit-llvm", "-g", relativeInProject(projectRoot, f.FilePath), "-o", bc)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("bitcode emit failed: %s", firstLine(out))
	}

	// wpa writes callgraph_final.dot into its working directory.
	out, code, err = c.execInDir(ctx, "/tmp", "wpa", "-ander", "-dump-callgraph", bc)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("wpa analysis failed: %s", firstLine(out))
	}

	dot, code, err := c.execIn(ctx, "cat", "/tmp/callgraph_final.dot")
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("call graph not produced: %s", firstLine(dot))
	}

	stack := callStackFromDot(dot)
	if len(stack) == 0 {
		return &engine.Reachability{
			Evaluated: true,
			Supported: true,
			Reachable: false,
			CallStack: []string{"no path from main in call graph"},
			DataFlow:  []string{},
		}, nil
	}
	return &engine.Reachability{
		Evaluated: true,
		Supported: true,
		Reachable: true,
		CallStack: stack,
		DataFlow:  []string{fmt.Sprintf("%s:%d", f.FilePath, f.Line)},
	}, nil
}

// callStackFromDot walks the wpa call graph breadth-first from main and
// returns the visit order as a linearized call stack. An empty slice
// means main is absent or calls nothing.
func callStackFromDot(dot string) []string {
	names := make(map[string]string)
	for _, m := range dotLabel.FindAllStringSubmatch(dot, -1) {
		names[m[1]] = m[2]
	}
	adj := make(map[string][]string)
	for _, m := range dotEdge.FindAllStringSubmatch(dot, -1) {
		adj[m[1]] = append(adj[m[1]], m[2])
	}

	var root string
	for id, name := range names {
		if name == "main" {
			root = id
			break
		}
	}
	if root == "" {
		return nil
	}

	seen := map[string]bool{root: true}
	queue := []string{root}
	stack := []string{"main"}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			if name, ok := names[next]; ok {
				stack = append(stack, name)
			}
		}
	}
	if len(stack) == 1 {
		return nil
	}
	return stack
}
