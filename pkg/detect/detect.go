package detect

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// languageExtensions maps file extensions to language tags. Adding a
// language here is all the detector needs.
var languageExtensions = map[string]string{
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hxx":  "cpp",
	".h++":  "cpp",
	".java": "java",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "javascript",
	".tsx":  "javascript",
}

// Languages walks the project tree and returns the sorted set of language
// tags with at least one matching file. Walk errors on individual entries
// are skipped; an empty result is valid.
func Languages(root string) []string {
	seen := map[string]bool{}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if lang, ok := languageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			seen[lang] = true
		}
		return nil
	})

	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// FilesByLanguage returns the sorted source files of one language under root.
func FilesByLanguage(root, language string) []string {
	var files []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if languageExtensions[strings.ToLower(filepath.Ext(path))] == language {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// LanguageOf maps a single file path to its language tag, or "".
func LanguageOf(path string) string {
	return languageExtensions[strings.ToLower(filepath.Ext(path))]
}
