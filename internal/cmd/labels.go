package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yannmerakeb/nlp-financial-reports/internal/pipeline"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Construct labels and report their composition",
	Long: `Labels runs the pipeline through label construction and prints how
the supervision splits between human annotations and weak labels, the class
balance, and how many documents fall out of the market join.`,
	Args: cobra.NoArgs,
	RunE: runLabels,
}

func init() {
	RootCmd.AddCommand(labelsCmd)
}

func runLabels(cmd *cobra.Command, _ []string) error {
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
	docs, _, err := runner.LoadDocuments(cmd.Context())
	if err != nil {
		return err
	}
	corpus, err := runner.Materialize(cmd.Context(), docs)
	if err != nil {
		return err
	}
	labelled, err := runner.BuildLabels(corpus)
	if err != nil {
		return err
	}

	evasive, direct := 0, 0
	for i := range labelled.Labels {
		if l := labelled.Labels[i].Evasive; l != nil {
			if *l == 1 {
				evasive++
			} else {
				direct++
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "passages: %d\n", len(labelled.Labels))
	fmt.Fprintf(out, "human labeled: %d\n", labelled.HumanLabeled)
	fmt.Fprintf(out, "weak labeled: %d\n", labelled.WeakLabeled)
	fmt.Fprintf(out, "unlabeled: %d\n", labelled.Unlabeled)
	fmt.Fprintf(out, "class balance: %d evasive / %d non-evasive\n", evasive, direct)
	fmt.Fprintf(out, "documents excluded from correlation: %d\n", labelled.ExcludedMarket)
	return nil
}
