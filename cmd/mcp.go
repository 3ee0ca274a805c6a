package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/logging"
	"github.com/user/sastbridge/pkg/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the scanner over the Model Context Protocol on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Console output would corrupt the stdio protocol stream.
		log := logging.Nop()

		cfg, err := config.Load("", config.Overrides{})
		if err != nil {
			return err
		}
		return mcpserver.ServeStdio(mcpserver.New(cfg, log))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
