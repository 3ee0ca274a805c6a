package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/logging"
	"github.com/user/sastbridge/pkg/pipeline"
	"github.com/user/sastbridge/pkg/ui"
)

var scanFlags struct {
	input        string
	output       string
	configPath   string
	enableLLM    bool
	llmProvider  string
	llmURL       string
	llmKey       string
	llmModel     string
	enableReach  bool
	workers      int
	withoutTools []string
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a project and write SARIF reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(DebugMode)
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg, err := config.Load(scanFlags.configPath, scanOverrides(cmd))
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		project, err := absDir(scanFlags.input)
		if err != nil {
			return err
		}

		fmt.Println(ui.Banner(project))

		p := pipeline.New(cfg, log)
		p.Progress = func(stage, detail string) {
			fmt.Println(ui.Stage(stage, detail))
		}

		summary, err := p.Run(cmd.Context(), project, scanFlags.output)
		if err != nil {
			return err
		}

		fmt.Println(ui.Summary(summary.Findings, summary.OutputDir))
		return nil
	},
}

// scanOverrides maps only the flags the user actually set, so file and
// environment values survive for everything else.
func scanOverrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	if cmd.Flags().Changed("enable-llm") {
		ov.EnableLLM = &scanFlags.enableLLM
	}
	if cmd.Flags().Changed("llm-provider") {
		ov.LLMProvider = &scanFlags.llmProvider
	}
	if cmd.Flags().Changed("llm-url") {
		ov.LLMURL = &scanFlags.llmURL
	}
	if cmd.Flags().Changed("llm-key") {
		ov.LLMAPIKey = &scanFlags.llmKey
	}
	if cmd.Flags().Changed("llm-model") {
		ov.LLMModel = &scanFlags.llmModel
	}
	if cmd.Flags().Changed("enable-reachability") {
		ov.EnableReachability = &scanFlags.enableReach
	}
	if cmd.Flags().Changed("workers") {
		ov.Workers = &scanFlags.workers
	}
	ov.DisabledTools = scanFlags.withoutTools
	return ov
}

func absDir(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %s is not a directory", path)
	}
	return filepath.Abs(path)
}

func init() {
	scanCmd.Flags().StringVarP(&scanFlags.input, "input", "i", "", "Project directory to scan (required)")
	scanCmd.Flags().StringVarP(&scanFlags.output, "output", "o", "", "Directory for SARIF reports (required)")
	scanCmd.Flags().StringVarP(&scanFlags.configPath, "config", "c", "", "Settings file (default ~/.sastbridge/config.yaml)")
	scanCmd.Flags().BoolVar(&scanFlags.enableLLM, "enable-llm", false, "Verify findings with an LLM")
	scanCmd.Flags().StringVar(&scanFlags.llmProvider, "llm-provider", "", "LLM provider: openai or gemini")
	scanCmd.Flags().StringVar(&scanFlags.llmURL, "llm-url", "", "Base URL of the OpenAI-compatible API")
	scanCmd.Flags().StringVar(&scanFlags.llmKey, "llm-key", "", "API key for the LLM provider")
	scanCmd.Flags().StringVar(&scanFlags.llmModel, "llm-model", "", "Model name for verification")
	scanCmd.Flags().BoolVar(&scanFlags.enableReach, "enable-reachability", false, "Augment findings with reachability analysis")
	scanCmd.Flags().IntVar(&scanFlags.workers, "workers", 0, "Concurrent tool invocations")
	scanCmd.Flags().StringSliceVar(&scanFlags.withoutTools, "without", nil, "Tools to disable (e.g. joern,bandit)")
	_ = scanCmd.MarkFlagRequired("input")
	_ = scanCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(scanCmd)
}
