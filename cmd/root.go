package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "equity-research-cli",
	Short: "Automated equity research report pipeline",
	Long:  "Plans web research for a public company, fans out searches, extracts SEC filing data, computes verified financial ratios, and synthesizes an audited research report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
