package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/sastbridge/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage persisted settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("", config.Overrides{})
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist one setting to the settings file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path, config.Overrides{})
		if err != nil {
			return err
		}

		if err := applySetting(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Saved %s to %s\n", key, path)
		return nil
	},
}

func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "enable_llm":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants a boolean: %w", key, err)
		}
		cfg.EnableLLM = b
	case "llm_provider":
		if value != "openai" && value != "gemini" {
			return fmt.Errorf("llm_provider must be openai or gemini")
		}
		cfg.LLMProvider = value
	case "llm_url":
		cfg.LLMURL = value
	case "llm_api_key":
		cfg.LLMAPIKey = value
	case "llm_model":
		cfg.LLMModel = value
	case "enable_reachability":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants a boolean: %w", key, err)
		}
		cfg.EnableReachability = b
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("workers wants a positive integer")
		}
		cfg.Workers = n
	case "context_lines":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("context_lines wants a non-negative integer")
		}
		cfg.ContextLines = n
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
