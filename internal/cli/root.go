// Package cli implements the claims command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/config"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/logging"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "claims",
	Short: "Insurance claims advisory service",
	Long: `Runs insurance claims through a team of specialised workers
(claim assessor, policy checker, risk analyst, customer communication)
and reports a recommendation together with the full conversation.

Settings come from environment variables (LLM_MODE, DATA_DIR, AZURE_OPENAI_*, ...)
and, optionally, a YAML file passed with --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		logging.Init(c.LogLevel, c.LogFormat)
		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(indexCmd)
}
