package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
	"github.com/yannmerakeb/nlp-financial-reports/internal/pipeline"
)

var featuresOut string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Segment the corpus and extract passage features",
	Long: `Features runs ingest, segmentation, and feature extraction, then
prints the corpus summary. With --out the full feature matrix is written as
CSV, one row per passage in canonical feature order.`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringVar(&featuresOut, "out", "", "Write the feature matrix to this CSV file")
	RootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	runner := pipeline.New(cfg, nil, nil, log)
	docs, stats, err := runner.LoadDocuments(cmd.Context())
	if err != nil {
		return err
	}
	corpus, err := runner.Materialize(cmd.Context(), docs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "documents: %d (%d skipped in scan, %d dropped in segmentation)\n",
		len(corpus.Documents), stats.Skipped, corpus.SkippedDocuments)
	fmt.Fprintf(out, "passages: %d (%d without features)\n",
		len(corpus.Passages), corpus.SkippedPassages)

	if featuresOut == "" {
		return nil
	}
	if err := writeFeatureCSV(featuresOut, corpus.Features); err != nil {
		return err
	}
	fmt.Fprintf(out, "feature matrix written to %s\n", featuresOut)
	return nil
}

func writeFeatureCSV(path string, feats []models.FeatureVector) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"document_id", "passage_index"}, models.FeatureNames()...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range feats {
		fv := &feats[i]
		row := []string{fv.DocumentID, strconv.Itoa(fv.PassageIndex)}
		for _, v := range fv.Values() {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
