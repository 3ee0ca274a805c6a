package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/engine"
)

// Provider is one LLM backend able to answer a verification prompt.
type Provider interface {
	Complete(ctx context.Context, system, human string) (string, error)
	Close()
}

// NewProvider builds the backend named in the configuration.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIProvider(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMModel), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}

// parseVerdict extracts the structured verdict from a model response.
// Markdown fences are tolerated even though the prompt forbids them.
func parseVerdict(raw string) (*engine.PatchVerdict, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// Some models prepend prose before the object.
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndexByte(s, '}'); j >= 0 {
		s = s[:j+1]
	}

	var v engine.PatchVerdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("unparsable verdict: %w", err)
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	return &v, nil
}
