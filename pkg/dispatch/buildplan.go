package dispatch

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/user/sastbridge/pkg/detect"
	"github.com/user/sastbridge/pkg/engine"
)

// compiler preference order per language, first one on PATH wins
var compilerCandidates = map[string][]string{
	"c":    {"gcc", "clang", "cc"},
	"cpp":  {"g++", "clang++", "cxx"},
	"java": {"javac"},
}

// SynthesizePlan builds a best-effort compile plan for one compiled
// language: every discovered source file compiles individually, with the
// object name derived from the relative path so two main.c in different
// directories cannot collide. Returns nil when the language needs no
// plan, no sources exist, or no compiler is installed.
func SynthesizePlan(projectRoot, language string) *engine.CompilePlan {
	candidates, ok := compilerCandidates[language]
	if !ok {
		return nil
	}

	var compiler string
	for _, c := range candidates {
		if _, err := exec.LookPath(c); err == nil {
			compiler = c
			break
		}
	}
	if compiler == "" {
		return nil
	}

	files := detect.FilesByLanguage(projectRoot, language)
	var units []engine.CompileUnit
	for _, f := range files {
		if language != "java" && isHeader(f) {
			continue
		}
		rel, err := filepath.Rel(projectRoot, f)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		units = append(units, engine.CompileUnit{
			Source: rel,
			Object: objectName(rel, language),
		})
	}
	if len(units) == 0 {
		return nil
	}
	return &engine.CompilePlan{Compiler: compiler, Units: units}
}

func isHeader(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h", ".hpp", ".hxx", ".h++":
		return true
	}
	return false
}

func objectName(rel, language string) string {
	if language == "java" {
		// javac drops Class.class next to the source
		return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".class"
	}
	return strings.ReplaceAll(rel, "/", "_") + ".o"
}

// CleanupPlan removes every artifact the plan could have produced. Runs
// on every exit path; missing files are fine.
func CleanupPlan(projectRoot string, plan *engine.CompilePlan) {
	if plan == nil {
		return
	}
	for _, u := range plan.Units {
		os.Remove(filepath.Join(projectRoot, filepath.FromSlash(u.Object)))
	}
}
