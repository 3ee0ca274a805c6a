package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every recognized environment variable,
// e.g. SASTBRIDGE_ENABLE_LLM, SASTBRIDGE_LLM_URL.
const EnvPrefix = "SASTBRIDGE_"

// ToolConfig holds the per-tool knobs from the settings file.
type ToolConfig struct {
	Enabled        *bool `yaml:"enabled,omitempty"`
	TimeoutSeconds int   `yaml:"timeout,omitempty"`
}

// Config is the immutable, fully-resolved configuration for one run.
// Build it once with Load and thread it through the pipeline; nothing
// reads ambient state after that.
type Config struct {
	EnableLLM   bool   `yaml:"enable_llm"`
	LLMProvider string `yaml:"llm_provider"` // "openai" or "gemini"
	LLMURL      string `yaml:"llm_url"`
	LLMAPIKey   string `yaml:"llm_api_key"`
	LLMModel    string `yaml:"llm_model"`

	EnableReachability bool `yaml:"enable_reachability"`

	Workers      int `yaml:"workers"`
	ContextLines int `yaml:"context_lines"`

	Tools map[string]ToolConfig `yaml:"tools"`
}

// Overrides carries explicit values (CLI flags). Nil fields mean
// "not set"; set fields beat every other source.
type Overrides struct {
	EnableLLM          *bool
	LLMProvider        *string
	LLMURL             *string
	LLMAPIKey          *string
	LLMModel           *string
	EnableReachability *bool
	Workers            *int
	DisabledTools      []string
}

func defaults() *Config {
	return &Config{
		EnableLLM:          false,
		LLMProvider:        "openai",
		LLMURL:             "http://localhost:11434",
		LLMModel:           "qwen2.5:7b",
		EnableReachability: false,
		Workers:            4,
		ContextLines:       5,
		Tools:              map[string]ToolConfig{},
	}
}

// DefaultPath returns the persisted settings file, creating its directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".sastbridge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load resolves the configuration with precedence
// explicit override > environment > settings file > default.
// A missing settings file is not an error.
func Load(path string, ov Overrides) (*Config, error) {
	cfg := defaults()

	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyOverrides(cfg, ov)

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ContextLines < 1 {
		cfg.ContextLines = 5
	}
	if cfg.Tools == nil {
		cfg.Tools = map[string]ToolConfig{}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := envBool("ENABLE_LLM"); ok {
		cfg.EnableLLM = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_URL"); v != "" {
		cfg.LLMURL = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v, ok := envBool("ENABLE_REACHABILITY"); ok {
		cfg.EnableReachability = v
	}
	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.EnableLLM != nil {
		cfg.EnableLLM = *ov.EnableLLM
	}
	if ov.LLMProvider != nil {
		cfg.LLMProvider = *ov.LLMProvider
	}
	if ov.LLMURL != nil {
		cfg.LLMURL = *ov.LLMURL
	}
	if ov.LLMAPIKey != nil {
		cfg.LLMAPIKey = *ov.LLMAPIKey
	}
	if ov.LLMModel != nil {
		cfg.LLMModel = *ov.LLMModel
	}
	if ov.EnableReachability != nil {
		cfg.EnableReachability = *ov.EnableReachability
	}
	if ov.Workers != nil {
		cfg.Workers = *ov.Workers
	}
	for _, name := range ov.DisabledTools {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		tc := cfg.Tools[name]
		off := false
		tc.Enabled = &off
		cfg.Tools[name] = tc
	}
}

// ToolEnabled reports whether a tool is switched on. Tools default to
// enabled; only an explicit false disables them.
func (c *Config) ToolEnabled(name string) bool {
	tc, ok := c.Tools[strings.ToLower(name)]
	if !ok || tc.Enabled == nil {
		return true
	}
	return *tc.Enabled
}

// ToolTimeout returns the configured per-tool timeout, or fallback when
// the settings do not name one.
func (c *Config) ToolTimeout(name string, fallback time.Duration) time.Duration {
	tc, ok := c.Tools[strings.ToLower(name)]
	if !ok || tc.TimeoutSeconds <= 0 {
		return fallback
	}
	return time.Duration(tc.TimeoutSeconds) * time.Second
}

// Save persists cfg to path. Keys are written 0600 because the file may
// hold an API key.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
