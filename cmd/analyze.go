package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfg-analytics/oee-cli/internal/aggregate"
	"github.com/mfg-analytics/oee-cli/internal/metrics"
	"github.com/mfg-analytics/oee-cli/internal/model"
	"github.com/mfg-analytics/oee-cli/internal/store"
)

var (
	analyzeStart  string
	analyzeEnd    string
	analyzeStep   time.Duration
	analyzeUnits  []string
	analyzeFormat string
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute efficiency metrics over a date range",
	Long: `Computes availability, performance, quality, OEE, TEEP, and the
composite efficiency score for each equipment unit and sub-window of the
requested range, persists the results, and prints a report. Window/unit
pairs without enough data are listed as gaps, never as zero scores.

Examples:
  # One week, daily windows, all units
  oee-cli analyze --start 2026-03-01 --end 2026-03-07

  # A single unit, JSON rows for the dashboard
  oee-cli analyze --start 2026-03-01 --end 2026-03-07 --unit CNC001 --format json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		w, err := model.ParseWindow(analyzeStart, analyzeEnd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outcome, err := runAnalysis(ctx, st, analysisRequest{
			Window:  w,
			Step:    analyzeStep,
			Units:   analyzeUnits,
			Persist: true,
		})
		if err != nil {
			return err
		}

		out := os.Stdout
		if analyzeOutput != "" {
			f, err := os.Create(analyzeOutput)
			if err != nil {
				return eris.Wrap(err, "analyze: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch analyzeFormat {
		case "json":
			rows := make([]model.MetricRow, 0, len(outcome.Results))
			for _, res := range outcome.Results {
				rows = append(rows, res.Row())
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		case "text":
			_, err := fmt.Fprint(out, aggregate.FormatReport(outcome.Summary, outcome.Results))
			return err
		default:
			return eris.Errorf("analyze: unknown format %q", analyzeFormat)
		}
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "start date YYYY-MM-DD (required)")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "end date YYYY-MM-DD, inclusive (required)")
	analyzeCmd.Flags().DurationVar(&analyzeStep, "window", 24*time.Hour, "sub-window size")
	analyzeCmd.Flags().StringSliceVar(&analyzeUnits, "unit", nil, "restrict to specific equipment units (default: all)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: text or json")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write output to file (default: stdout)")
	_ = analyzeCmd.MarkFlagRequired("start")
	_ = analyzeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(analyzeCmd)
}

// analysisRequest carries the parameters shared by the analyze command and
// the server endpoints. Persist saves the computed results; the server's
// read-only view leaves it unset.
type analysisRequest struct {
	Window  model.Window
	Step    time.Duration
	Units   []string
	Persist bool
}

// analysisOutcome is the computed batch plus its fleet rollup.
type analysisOutcome struct {
	Results []model.MetricResult
	Gaps    []model.Gap
	Summary aggregate.Summary
}

// runAnalysis loads records for the window, computes metrics per sub-window
// and unit, stamps bottleneck ratings, optionally persists the results, and
// rolls up the summary.
func runAnalysis(ctx context.Context, st store.Store, req analysisRequest) (*analysisOutcome, error) {
	records, err := st.ListRecords(ctx, store.RecordFilter{Window: &req.Window})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Wrapf(model.ErrInsufficientData, "analyze: no records in %s", req.Window)
	}

	step := req.Step
	if step <= 0 {
		step = 24 * time.Hour
	}
	windows := req.Window.Split(step)

	engine := metrics.NewEngine(cfg.Metrics)
	batch, err := engine.ComputeBatch(ctx, records, windows, req.Units, cfg.Analyze.Concurrency)
	if err != nil {
		return nil, err
	}

	results := aggregate.ApplyBottlenecks(batch.Results, records)

	if req.Persist {
		if err := st.SaveResults(ctx, results); err != nil {
			return nil, err
		}
	}

	summary := aggregate.Summarize(results, batch.Gaps, cfg.Analyze.TrendEpsilon)
	zap.L().Info("analysis complete",
		zap.Int("results", len(results)),
		zap.Int("gaps", len(batch.Gaps)),
		zap.String("trend", string(summary.Trend)))

	return &analysisOutcome{
		Results: results,
		Gaps:    batch.Gaps,
		Summary: summary,
	}, nil
}
