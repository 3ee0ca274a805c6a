// Package ui renders scan progress and summaries for the terminal.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/sastbridge/pkg/engine"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	dim     = lipgloss.Color("#6B7280") // muted gray
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	stageStyle  = lipgloss.NewStyle().Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	errStyle    = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(warning)
	noteStyle   = lipgloss.NewStyle().Foreground(dim)
	okStyle     = lipgloss.NewStyle().Foreground(success)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)
)

// Banner renders the application header shown before a scan.
func Banner(project string) string {
	return boxStyle.Render(headerStyle.Render("sastbridge") + "\n" + dimStyle.Render(project))
}

// Stage renders one pipeline stage transition.
func Stage(name, detail string) string {
	s := stageStyle.Render("▸ " + name)
	if detail != "" {
		s += " " + dimStyle.Render(detail)
	}
	return s
}

// Summary renders the end-of-scan totals grouped by tool and severity.
func Summary(findings []engine.Finding, outDir string) string {
	var b strings.Builder

	byTool := make(map[string]int)
	bySeverity := make(map[engine.Severity]int)
	verified := 0
	for _, f := range findings {
		byTool[f.Tool.Name]++
		bySeverity[f.Severity]++
		if f.Verdict != nil && f.Verdict.IsValid {
			verified++
		}
	}

	b.WriteString(headerStyle.Render("Scan complete"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n",
		dimStyle.Render("findings:"),
		severityLine(bySeverity))

	tools := make([]string, 0, len(byTool))
	for t := range byTool {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	for _, t := range tools {
		fmt.Fprintf(&b, "  %s %d\n", dimStyle.Render(t+":"), byTool[t])
	}

	if verified > 0 {
		fmt.Fprintf(&b, "%s %d\n", okStyle.Render("verified vulnerabilities:"), verified)
	}
	fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("reports:"), outDir)
	return b.String()
}

func severityLine(by map[engine.Severity]int) string {
	parts := []string{
		errStyle.Render(fmt.Sprintf("%d error", by[engine.SeverityError])),
		warnStyle.Render(fmt.Sprintf("%d warning", by[engine.SeverityWarning])),
		noteStyle.Render(fmt.Sprintf("%d note", by[engine.SeverityNote])),
	}
	return strings.Join(parts, dimStyle.Render(" / "))
}
