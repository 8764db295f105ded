package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yannmerakeb/nlp-financial-reports/internal/pipeline"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <run-id>",
	Short: "Recompute and store the report for a persisted run",
	Long: `Evaluate rebuilds the evaluation report from a stored run's
prediction records and labels, replaces the stored report, and prints it as
JSON. The report is derived state, so re-evaluating under different
evaluation settings is always safe.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	RootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	run, err := st.Runs.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	labelSet, err := st.Labels.List(ctx, runID)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	preds, err := st.Predictions.List(ctx, runID, "")
	if err != nil {
		return fmt.Errorf("load predictions: %w", err)
	}

	report, err := pipeline.New(cfg, nil, nil, log).Evaluate(preds, labelSet)
	if err != nil {
		return err
	}
	report.Run.RunID = runID
	report.Run.StartedAt = run.StartedAt
	if run.FinishedAt != nil {
		report.Run.FinishedAt = *run.FinishedAt
	}
	// Ingest-time skip counters are not recomputable from stored artifacts;
	// carry them over from the previous report.
	if prev, err := st.Reports.Get(ctx, runID); err == nil {
		report.Run.SkippedDocuments = prev.Run.SkippedDocuments
		report.Run.SkippedPassages = prev.Run.SkippedPassages
	}

	if err := st.Reports.Save(ctx, runID, report); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), report)
}
