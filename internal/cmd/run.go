package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yannmerakeb/nlp-financial-reports/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full pipeline and persist the run",
	Long: `Run ingests the filings directory, segments and featurizes the
passages, constructs evasiveness and market-reaction labels, trains the
baseline and advanced classifiers on a shared document-level split, evaluates
both on the held-out documents, and stores every artifact under a fresh run
ID. The evaluation report is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	notif, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := pipeline.New(cfg, st, notif, log).Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}
