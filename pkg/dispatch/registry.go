package dispatch

import (
	"time"

	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/engine"
	"github.com/user/sastbridge/pkg/wrappers"
)

// Registration binds an adapter to the languages it applies to. Adding
// or removing a tool is an edit here, not a code branch.
type Registration struct {
	Adapter        engine.Adapter
	Languages      []string
	DefaultTimeout time.Duration
	// NeedsBuild marks database-creating adapters that want a
	// synthesized compile plan for compiled languages.
	NeedsBuild bool
}

// Registry holds the adapter registrations in invocation order.
type Registry struct {
	entries []Registration
}

func NewRegistry(entries ...Registration) *Registry {
	return &Registry{entries: entries}
}

// DefaultRegistry wires the stock adapter set: CodeQL for everything,
// Joern for native code, SpotBugs for Java, Bandit for Python, and the
// pattern analyzer for every language as a low-cost supplement.
func DefaultRegistry(log *zap.SugaredLogger) *Registry {
	return NewRegistry(
		Registration{
			Adapter:        wrappers.NewCodeQLAdapter(log),
			Languages:      []string{"c", "cpp", "java", "python", "javascript"},
			DefaultTimeout: 10 * time.Minute,
			NeedsBuild:     true,
		},
		Registration{
			Adapter:        wrappers.NewJoernAdapter(log),
			Languages:      []string{"c", "cpp"},
			DefaultTimeout: 5 * time.Minute,
		},
		Registration{
			Adapter:        wrappers.NewSpotBugsAdapter(log),
			Languages:      []string{"java"},
			DefaultTimeout: 5 * time.Minute,
		},
		Registration{
			Adapter:        wrappers.NewBanditAdapter(log),
			Languages:      []string{"python"},
			DefaultTimeout: 2 * time.Minute,
		},
		Registration{
			Adapter:        wrappers.NewPatternAdapter(log),
			Languages:      []string{"c", "cpp", "java", "python", "javascript"},
			DefaultTimeout: time.Minute,
		},
	)
}

// For returns the registrations applicable to one language, in order.
func (r *Registry) For(language string) []Registration {
	var out []Registration
	for _, e := range r.entries {
		for _, l := range e.Languages {
			if l == language {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
