// Package history records scan summaries so previous runs can be
// reviewed from the output directory.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const fileName = "history.json"

// Entry is one completed scan.
type Entry struct {
	Time           time.Time      `json:"time"`
	Project        string         `json:"project"`
	Languages      []string       `json:"languages"`
	FindingsByTool map[string]int `json:"findings_by_tool"`
	Verified       int            `json:"verified"`
}

// Append adds an entry to history.json in outDir, creating it when
// missing. A corrupt file is replaced rather than blocking the scan.
func Append(outDir string, e Entry) error {
	path := filepath.Join(outDir, fileName)

	var entries []Entry
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &entries)
	}
	entries = append(entries, e)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load returns the recorded entries, oldest first.
func Load(outDir string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(outDir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
