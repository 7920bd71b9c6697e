package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/model"
)

var (
	runTicker string
	runName   string
	runFocus  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a research report for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.Request{
			Ticker: runTicker,
			Name:   runName,
			Focus:  runFocus,
		}

		result, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("research run complete",
			zap.String("ticker", req.Ticker),
			zap.String("sector", result.Sector),
			zap.Int64("total_tokens", result.TotalTokens),
			zap.Float64("estimated_cost_usd", result.EstimatedCostUSD),
			zap.Int("degraded_errors", len(result.Errors)),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runTicker, "ticker", "", "stock ticker symbol (required)")
	runCmd.Flags().StringVar(&runName, "name", "", "company display name")
	runCmd.Flags().StringVar(&runFocus, "focus", "", "optional research focus, e.g. \"credit quality\"")
	_ = runCmd.MarkFlagRequired("ticker")
	rootCmd.AddCommand(runCmd)
}
