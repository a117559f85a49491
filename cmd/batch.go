package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/copilot-qa/internal/batch"
	"github.com/sells-group/copilot-qa/internal/model"
	"github.com/sells-group/copilot-qa/internal/resilience"
	"github.com/sells-group/copilot-qa/internal/table"
)

var (
	batchInput       string
	batchOutput      string
	batchFormat      string
	batchLimit       int
	batchDelay       time.Duration
	batchConcurrency int
	batchProfile     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer every question in a CSV and write the augmented table",
	Long: `Reads a CSV with a question column, asks each question in its own
fresh conversation, and writes the table back out with answer, citations,
citationTexts, and searchTerms columns appended.

A row whose question fails is recorded with an error marker in its answer
column; the batch keeps going. Input, auth, and output failures abort the
whole run.

Examples:
  # Answer questions.csv, writing questions_with_answers.csv
  copilot-qa batch --input questions.csv

  # XLSX output with 2s pacing between requests
  copilot-qa batch --input questions.csv --format xlsx --delay 2s

  # Use the Anthropic backend from a named profile
  copilot-qa batch --input questions.csv --profile claude`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format := strings.ToLower(batchFormat)
		if format != "csv" && format != "xlsx" {
			return eris.Errorf("batch: unsupported format %q (want csv or xlsx)", batchFormat)
		}

		rows, err := table.ReadQuestions(batchInput)
		if err != nil {
			return err
		}
		if batchLimit > 0 && batchLimit < len(rows) {
			rows = rows[:batchLimit]
		}
		zap.L().Info("batch: questions loaded",
			zap.String("input", batchInput),
			zap.Int("rows", len(rows)),
		)

		agent, err := buildAgent(ctx, batchProfile)
		if err != nil {
			return err
		}

		output := batchOutput
		if output == "" {
			output = defaultOutputPath(batchInput, format)
		}

		// Run history is best-effort bookkeeping; the output file is the
		// product. A store failure is logged, never fatal.
		var run *model.Run
		st, storeErr := initStore(ctx)
		if storeErr != nil {
			zap.L().Warn("batch: run store unavailable", zap.Error(storeErr))
		} else {
			defer st.Close() //nolint:errcheck
			run, storeErr = st.CreateRun(ctx, batchInput, output, format)
			if storeErr != nil {
				zap.L().Warn("batch: record run", zap.Error(storeErr))
			}
		}

		delay := batchDelay
		if !cmd.Flags().Changed("delay") {
			delay = cfg.Batch.Delay()
		}
		concurrency := batchConcurrency
		if !cmd.Flags().Changed("concurrency") {
			concurrency = cfg.Batch.Concurrency
		}

		opts := []batch.Option{
			batch.WithDelay(delay),
			batch.WithConcurrency(concurrency),
		}
		if cfg.Batch.MaxRetries > 0 {
			policy := resilience.DefaultPolicy()
			policy.MaxAttempts = cfg.Batch.MaxRetries + 1
			opts = append(opts, batch.WithRetry(policy))
		}

		runner := batch.NewRunner(agent, opts...)
		results, summary := runner.Run(ctx, rows)

		if err := writeTable(output, format, results); err != nil {
			if st != nil && run != nil {
				_ = st.CompleteRun(ctx, run.ID, model.RunStatusFailed,
					summary.Total, summary.Succeeded, summary.Failed, summary.Duration.Milliseconds())
			}
			return err
		}

		if st != nil && run != nil {
			if err := st.CompleteRun(ctx, run.ID, model.RunStatusCompleted,
				summary.Total, summary.Succeeded, summary.Failed, summary.Duration.Milliseconds()); err != nil {
				zap.L().Warn("batch: record run completion", zap.Error(err))
			}
		}

		zap.L().Info("batch: complete",
			zap.String("output", output),
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Duration("duration", summary.Duration),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "path to input CSV with a question column (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output path (default: <input>_with_answers.<format>)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "csv", "output format: csv or xlsx")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max questions to process (0 = all)")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", time.Second, "pacing interval between requests (0 disables)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 1, "questions in flight at once; output order is preserved")
	batchCmd.Flags().StringVar(&batchProfile, "profile", "", "named backend profile from the profiles file")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// defaultOutputPath derives the output path from the input path: the input
// base name with a "_with_answers" suffix and the format's extension.
func defaultOutputPath(input, format string) string {
	base := strings.TrimSuffix(input, ".csv")
	return base + "_with_answers." + format
}

// writeTable dispatches on the output format.
func writeTable(path, format string, rows []*model.Row) error {
	if format == "xlsx" {
		return table.WriteXLSX(path, rows)
	}
	return table.WriteCSV(path, rows)
}
