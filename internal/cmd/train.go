package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yannmerakeb/nlp-financial-reports/internal/pipeline"
)

var checkpointPath string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train both classifiers without persisting a run",
	Long: `Train executes the pipeline through model fitting and held-out
scoring, printing the split and prediction counts. Nothing is stored; with
--checkpoint the fitted advanced head is saved for later reuse.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Save the fitted advanced head to this file")
	RootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := pipeline.New(cfg, nil, nil, log)
	docs, _, err := runner.LoadDocuments(ctx)
	if err != nil {
		return err
	}
	corpus, err := runner.Materialize(ctx, docs)
	if err != nil {
		return err
	}
	labelled, err := runner.BuildLabels(corpus)
	if err != nil {
		return err
	}
	trained, err := runner.Train(ctx, corpus, labelled, uuid.NewString())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "split: %d train / %d validation / %d eval documents\n",
		len(trained.Split.Train), len(trained.Split.Validation), len(trained.Split.Eval))
	fmt.Fprintf(out, "examples: %d train / %d validation / %d eval\n",
		len(trained.Dataset.Train), len(trained.Dataset.Validation), len(trained.Dataset.Eval))
	fmt.Fprintf(out, "held-out predictions: %d\n", len(trained.Predictions))

	if checkpointPath == "" {
		return nil
	}
	if err := trained.Advanced.SaveCheckpoint(checkpointPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "advanced head saved to %s\n", checkpointPath)
	return nil
}
