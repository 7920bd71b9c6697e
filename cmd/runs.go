package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect research run history",
	Long:  "Commands for listing, viewing, and summarizing research runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stage, _ := cmd.Flags().GetString("stage")
		ticker, _ := cmd.Flags().GetString("ticker")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Stage:  model.Stage(stage),
			Ticker: ticker,
			Limit:  limit,
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		detail, err := loadRunDetail(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

// -- runs report --

var runsReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print the final report of a completed run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		result, err := st.GetRunResult(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs report")
		}
		if result == nil {
			return eris.Errorf("run %s has no report yet", args[0])
		}

		fmt.Fprintln(os.Stdout, result.Report)
		if result.VerificationNote != "" {
			fmt.Fprintf(os.Stderr, "\nVerification note: %s\n", result.VerificationNote)
		}
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := store.RunFilter{Limit: 10000} // high limit for stats

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		stats := computeRunStats(runs)
		formatRunStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("stage", "", "filter by stage (planning, searching, ..., done, failed)")
	runsListCmd.Flags().String("ticker", "", "filter by ticker symbol")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsReportCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runDetail is the JSON document printed by `runs show`.
type runDetail struct {
	Run       *model.Run            `json:"run"`
	Artifacts []model.Artifact      `json:"artifacts,omitempty"`
	Errors    []model.RunError      `json:"errors,omitempty"`
	Lines     []model.StatementLine `json:"statement_lines,omitempty"`
	Result    *model.ReportResult   `json:"result,omitempty"`
}

// loadRunDetail assembles the run row with its artifacts, errors,
// statement lines, and (for finished runs) the final result.
func loadRunDetail(ctx context.Context, st store.Store, runID string) (*runDetail, error) {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	detail := &runDetail{Run: run}

	if detail.Artifacts, err = st.ListArtifacts(ctx, runID); err != nil {
		return nil, err
	}
	if detail.Errors, err = st.ListErrors(ctx, runID); err != nil {
		return nil, err
	}
	if detail.Lines, err = st.ListStatementLines(ctx, runID); err != nil {
		return nil, err
	}

	if run.Stage == model.StageDone {
		if detail.Result, err = st.GetRunResult(ctx, runID); err != nil {
			return nil, err
		}
	}

	return detail, nil
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Done       int
	Failed     int
	InProgress int
	AvgDurSecs float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Stage {
		case model.StageDone:
			s.Done++
			if r.CompletedAt != nil {
				totalDur += r.CompletedAt.Sub(r.StartedAt)
				durCount++
			}
		case model.StageFailed:
			s.Failed++
		default:
			s.InProgress++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTICKER\tSTAGE\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------\t--------")

	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		ticker := r.Request.Ticker
		if r.Request.Name != "" {
			ticker = fmt.Sprintf("%s (%s)", r.Request.Ticker, r.Request.Name)
		}
		if len(ticker) > 30 {
			ticker = ticker[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			ticker,
			r.Stage,
			r.StartedAt.Format(time.RFC3339),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate statistics to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Done:\t%d\n", s.Done)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "In progress:\t%d\n", s.InProgress)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
