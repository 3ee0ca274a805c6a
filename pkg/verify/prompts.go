package verify

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/user/sastbridge/pkg/engine"
)

//go:embed prompts/basic.md
var basicPrompt string

//go:embed prompts/reach.md
var reachPrompt string

// promptPair is one template split into its system and human halves.
type promptPair struct {
	system string
	human  string
}

func splitPrompt(raw string) promptPair {
	parts := strings.SplitN(raw, "\n---\n", 2)
	if len(parts) != 2 {
		return promptPair{system: strings.TrimSpace(raw)}
	}
	return promptPair{
		system: strings.TrimSpace(parts[0]),
		human:  strings.TrimSpace(parts[1]),
	}
}

// buildPrompt selects the template for the finding and substitutes its
// placeholders. The reachability template is used only when an oracle
// actually produced the evidence; the not-supported sentinel falls back
// to the basic template rather than claiming the code is unreachable.
func buildPrompt(f engine.Finding, code string) promptPair {
	r := f.Reachability
	if r == nil || !r.Evaluated || !r.Supported {
		p := splitPrompt(basicPrompt)
		p.human = substitute(p.human, f, code)
		return p
	}
	p := splitPrompt(reachPrompt)
	p.human = substitute(p.human, f, code)
	p.human = strings.NewReplacer(
		"{{reachable}}", fmt.Sprintf("%t", r.Reachable),
		"{{call_stack}}", strings.Join(r.CallStack, " -> "),
		"{{data_flow}}", strings.Join(r.DataFlow, ", "),
	).Replace(p.human)
	return p
}

func substitute(tpl string, f engine.Finding, code string) string {
	return strings.NewReplacer(
		"{{rule_id}}", f.RuleID,
		"{{rule_name}}", f.RuleName,
		"{{message}}", f.Message,
		"{{file}}", f.FilePath,
		"{{line}}", fmt.Sprintf("%d", f.Line),
		"{{language}}", f.Language,
		"{{code}}", code,
	).Replace(tpl)
}
