package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/config"
	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
	"github.com/yannmerakeb/nlp-financial-reports/internal/store"
)

// Two filing bodies with opposite linguistic profiles: one hedged enough to
// clear the weak-label cutoff in every passage, one direct enough to stay
// under it.
const evasiveBody = `We may experience significant losses and results could differ from what management believes. Certain factors might affect various markets and we anticipate that conditions could remain uncertain. The company estimates that demand may weaken and outcomes might vary substantially. We believe it is possible that several risks could prove material to our business.`

const directBody = `The company operates twelve manufacturing plants across nine countries. Revenue grew 14% during the fiscal year and net income rose to 120 million dollars. We completed three acquisitions and opened four distribution centers. The board declared a quarterly dividend of 30 cents per share. Headcount increased to 5400 employees worldwide.`

const fallingPrices = `date;close
2023-03-01;100.0
2023-03-02;98.0
2023-03-03;95.0
2023-03-06;90.0
2023-03-07;88.0
2023-03-08;85.0
`

const risingPrices = `date;close
2023-03-01;100.0
2023-03-02;103.0
2023-03-03;106.0
2023-03-06;110.0
2023-03-07;112.0
2023-03-08;115.0
`

var (
	evasiveTickers = []string{"AAPL", "MSFT", "NVDA", "AMZN", "META"}
	directTickers  = []string{"IBM", "ORCL", "INTC", "CSCO", "TXN"}
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// testConfig lays out a ten-document corpus on disk: five filings in hedged
// language whose prices fall after filing, five in direct language whose
// prices rise, a manifest with exact filing dates, one unparseable file, and
// two human annotations.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	filingsDir := filepath.Join(root, "filings")
	pricesDir := filepath.Join(root, "prices")
	for _, dir := range []string{filingsDir, pricesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	manifest := []string{"filename,ticker,filing_date"}
	for _, ticker := range evasiveTickers {
		name := ticker + "_10K_2023.txt"
		writeFile(t, filepath.Join(filingsDir, name), strings.Repeat(evasiveBody+" ", 2))
		writeFile(t, filepath.Join(pricesDir, ticker+".csv"), fallingPrices)
		manifest = append(manifest, name+","+ticker+",2023-03-01")
	}
	for _, ticker := range directTickers {
		name := ticker + "_10K_2023.txt"
		writeFile(t, filepath.Join(filingsDir, name), strings.Repeat(directBody+" ", 2))
		writeFile(t, filepath.Join(pricesDir, ticker+".csv"), risingPrices)
		manifest = append(manifest, name+","+ticker+",2023-03-01")
	}
	writeFile(t, filepath.Join(filingsDir, "filings.csv"), strings.Join(manifest, "\n")+"\n")
	writeFile(t, filepath.Join(filingsDir, "README.txt"), "not a filing")

	annotations := filepath.Join(root, "annotations.csv")
	writeFile(t, annotations, strings.Join([]string{
		"document_id,passage_index,evasive,annotator",
		"AAPL_10K_2023,0,1,analyst-1",
		"IBM_10K_2023,0,0,analyst-2",
	}, "\n")+"\n")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Data.FilingsDir = filingsDir
	cfg.Data.AnnotationsFile = annotations
	cfg.Market.PricesDir = pricesDir
	cfg.Market.WindowDays = 3
	cfg.Market.AdverseReturnThreshold = -0.02
	cfg.Segmenter.MaxPassageTokens = 40
	cfg.Labels.WeakCutoff = 0.05
	cfg.Training.SplitRatio = 0.7
	cfg.Training.ValidationRatio = 0.3
	cfg.Training.Epochs = 15
	cfg.Training.BatchSize = 8
	cfg.Training.MaxVocabulary = 500
	cfg.Training.IncludeDenseFeatures = true
	cfg.Encoder.Dimension = 64
	cfg.Evaluation.BootstrapRounds = 200
	cfg.Pipeline.Workers = 2
	cfg.Store.DSN = filepath.Join(root, "finreports.db")
	return cfg
}

func openTestStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(store.Options{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunPersistsArtifacts(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t, cfg)
	ctx := context.Background()

	runner := New(cfg, st, nil, zap.NewNop())
	report, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Run.RunID == "" {
		t.Error("report has empty run ID")
	}
	if report.Run.FinishedAt.Before(report.Run.StartedAt) {
		t.Errorf("FinishedAt %v precedes StartedAt %v", report.Run.FinishedAt, report.Run.StartedAt)
	}
	if report.Run.Documents != 10 {
		t.Errorf("Documents = %d, want 10", report.Run.Documents)
	}
	if report.Run.SkippedDocuments != 1 {
		t.Errorf("SkippedDocuments = %d, want 1", report.Run.SkippedDocuments)
	}
	if report.Run.SkippedPassages != 0 {
		t.Errorf("SkippedPassages = %d, want 0", report.Run.SkippedPassages)
	}
	if report.Run.Passages < 20 {
		t.Errorf("Passages = %d, want at least two per document", report.Run.Passages)
	}
	if report.Run.HumanLabeled != 2 {
		t.Errorf("HumanLabeled = %d, want 2", report.Run.HumanLabeled)
	}
	if got := report.Run.HumanLabeled + report.Run.WeakLabeled; got != report.Run.Passages {
		t.Errorf("labeled passages = %d, want all %d", got, report.Run.Passages)
	}
	if report.Run.ExcludedFromCorrelation != 0 {
		t.Errorf("ExcludedFromCorrelation = %d, want 0", report.Run.ExcludedFromCorrelation)
	}

	if len(report.Models) != 2 {
		t.Fatalf("len(Models) = %d, want 2", len(report.Models))
	}
	if report.Models[0].Model != models.ModelAdvanced || report.Models[1].Model != models.ModelBaseline {
		t.Errorf("model order = [%s %s], want [%s %s]",
			report.Models[0].Model, report.Models[1].Model, models.ModelAdvanced, models.ModelBaseline)
	}
	if report.Models[0].Examples != report.Models[1].Examples {
		t.Errorf("models scored different example counts: %d vs %d",
			report.Models[0].Examples, report.Models[1].Examples)
	}
	for _, m := range report.Models {
		if m.Examples == 0 {
			t.Errorf("%s metrics cover no examples", m.Model)
		}
		if m.ROCAUC < 0 || m.ROCAUC > 1 {
			t.Errorf("%s ROCAUC = %v, want within [0,1]", m.Model, m.ROCAUC)
		}
	}

	if report.Comparison == nil {
		t.Fatal("report has no model comparison")
	}
	if report.Comparison.Metric != "roc_auc" {
		t.Errorf("Comparison.Metric = %q, want roc_auc", report.Comparison.Metric)
	}
	if report.Comparison.Rounds != 200 {
		t.Errorf("Comparison.Rounds = %d, want 200", report.Comparison.Rounds)
	}
	if report.Comparison.CILow > report.Comparison.CIHigh {
		t.Errorf("confidence interval inverted: [%v, %v]", report.Comparison.CILow, report.Comparison.CIHigh)
	}

	if len(report.Associations) != 2 {
		t.Fatalf("len(Associations) = %d, want 2", len(report.Associations))
	}
	for _, assoc := range report.Associations {
		if assoc.Test != "point_biserial" {
			t.Errorf("%s association test = %q, want point_biserial", assoc.Model, assoc.Test)
		}
		if assoc.Documents != 4 || assoc.Adverse != 2 {
			t.Errorf("%s association covers %d/%d docs, want 4/2 adverse",
				assoc.Model, assoc.Documents, assoc.Adverse)
		}
		if assoc.PValue < 0 || assoc.PValue > 1 {
			t.Errorf("%s association p-value = %v, want within [0,1]", assoc.Model, assoc.PValue)
		}
	}

	run, err := st.Runs.Get(ctx, report.Run.RunID)
	if err != nil {
		t.Fatalf("Runs.Get() error = %v", err)
	}
	if run.Status != models.RunComplete {
		t.Errorf("run status = %q, want %q", run.Status, models.RunComplete)
	}
	if run.FinishedAt == nil {
		t.Error("completed run has nil FinishedAt")
	}
	if run.Error != nil {
		t.Errorf("completed run carries error %q", *run.Error)
	}
	if run.ConfigYAML == "" {
		t.Error("run record has empty config dump")
	}

	passages, err := st.Passages.List(ctx, report.Run.RunID)
	if err != nil {
		t.Fatalf("Passages.List() error = %v", err)
	}
	if len(passages) != report.Run.Passages {
		t.Errorf("persisted passages = %d, want %d", len(passages), report.Run.Passages)
	}

	preds, err := st.Predictions.List(ctx, report.Run.RunID, "")
	if err != nil {
		t.Fatalf("Predictions.List() error = %v", err)
	}
	baselinePreds, err := st.Predictions.List(ctx, report.Run.RunID, models.ModelBaseline)
	if err != nil {
		t.Fatalf("Predictions.List(baseline) error = %v", err)
	}
	if len(preds) != 2*len(baselinePreds) {
		t.Errorf("persisted predictions = %d, want %d", len(preds), 2*len(baselinePreds))
	}
	for _, p := range preds {
		if p.Probability < 0 || p.Probability > 1 {
			t.Errorf("prediction %s has probability %v outside [0,1]", p.Key(), p.Probability)
		}
	}

	stored, err := st.Reports.Get(ctx, report.Run.RunID)
	if err != nil {
		t.Fatalf("Reports.Get() error = %v", err)
	}
	if stored.Run.RunID != report.Run.RunID {
		t.Errorf("stored report run = %q, want %q", stored.Run.RunID, report.Run.RunID)
	}
	if len(stored.Models) != 2 {
		t.Errorf("stored report has %d models, want 2", len(stored.Models))
	}
}

func TestRunMarksFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.FilingsDir = t.TempDir()
	st := openTestStore(t, cfg)
	ctx := context.Background()

	runner := New(cfg, st, nil, zap.NewNop())
	_, err := runner.Run(ctx)
	if err == nil {
		t.Fatal("Run() succeeded with an empty filings directory")
	}
	if !strings.Contains(err.Error(), "no parseable filings") {
		t.Errorf("Run() error = %v, want mention of missing filings", err)
	}

	runs, err := st.Runs.List(ctx)
	if err != nil {
		t.Fatalf("Runs.List() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Status != models.RunFailed {
		t.Errorf("run status = %q, want %q", runs[0].Status, models.RunFailed)
	}
	if runs[0].FinishedAt == nil {
		t.Error("failed run has nil FinishedAt")
	}
	if runs[0].Error == nil {
		t.Fatal("failed run has nil error")
	}
	if !strings.Contains(*runs[0].Error, "no parseable filings") {
		t.Errorf("run error = %q, want mention of missing filings", *runs[0].Error)
	}
}

func TestStagesWithoutStore(t *testing.T) {
	cfg := testConfig(t)
	// A ticker with no price history exercises the correlation exclusion.
	writeFile(t, filepath.Join(cfg.Data.FilingsDir, "GOOG_10K_2023.txt"), strings.Repeat(directBody+" ", 2))

	runner := New(cfg, nil, nil, zap.NewNop())
	ctx := context.Background()

	docs, stats, err := runner.LoadDocuments(ctx)
	if err != nil {
		t.Fatalf("LoadDocuments() error = %v", err)
	}
	if len(docs) != 11 {
		t.Fatalf("len(docs) = %d, want 11", len(docs))
	}
	if stats.Skipped != 1 {
		t.Errorf("stats.Skipped = %d, want 1", stats.Skipped)
	}

	corpus, err := runner.Materialize(ctx, docs)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if len(corpus.Documents) != 11 {
		t.Errorf("len(corpus.Documents) = %d, want 11", len(corpus.Documents))
	}
	if corpus.SkippedDocuments != 0 || corpus.SkippedPassages != 0 {
		t.Errorf("skipped %d documents and %d passages, want none",
			corpus.SkippedDocuments, corpus.SkippedPassages)
	}
	if len(corpus.Features) != len(corpus.Passages) {
		t.Errorf("features = %d, want one per passage (%d)", len(corpus.Features), len(corpus.Passages))
	}
	perDoc := make(map[string]int)
	for _, p := range corpus.Passages {
		perDoc[p.DocumentID]++
	}
	if n := perDoc["AAPL_10K_2023"]; n < 2 {
		t.Errorf("AAPL_10K_2023 passages = %d, want at least 2", n)
	}

	labelled, err := runner.BuildLabels(corpus)
	if err != nil {
		t.Fatalf("BuildLabels() error = %v", err)
	}
	if labelled.HumanLabeled != 2 {
		t.Errorf("HumanLabeled = %d, want 2", labelled.HumanLabeled)
	}
	if labelled.Unlabeled != 0 {
		t.Errorf("Unlabeled = %d, want 0", labelled.Unlabeled)
	}
	if labelled.ExcludedMarket != 1 {
		t.Errorf("ExcludedMarket = %d, want 1", labelled.ExcludedMarket)
	}

	byKey := make(map[models.PassageKey]models.Label, len(labelled.Labels))
	for _, l := range labelled.Labels {
		byKey[l.Key()] = l
	}

	aapl := byKey[models.PassageKey{DocumentID: "AAPL_10K_2023", PassageIndex: 0}]
	if aapl.Source != models.SourceHuman || aapl.Evasive == nil || *aapl.Evasive != 1 {
		t.Errorf("AAPL_10K_2023#0 = %+v, want human label 1", aapl)
	}
	if aapl.MarketAdverse == nil || !*aapl.MarketAdverse {
		t.Error("AAPL_10K_2023#0 should carry an adverse market label")
	}
	if aapl.ForwardReturn == nil || math.Abs(*aapl.ForwardReturn+0.10) > 1e-9 {
		t.Errorf("AAPL_10K_2023#0 forward return = %v, want -0.10", aapl.ForwardReturn)
	}

	msft := byKey[models.PassageKey{DocumentID: "MSFT_10K_2023", PassageIndex: 1}]
	if msft.Source != models.SourceWeak || msft.Evasive == nil || *msft.Evasive != 1 {
		t.Errorf("MSFT_10K_2023#1 = %+v, want weak label 1", msft)
	}

	orcl := byKey[models.PassageKey{DocumentID: "ORCL_10K_2023", PassageIndex: 0}]
	if orcl.Source != models.SourceWeak || orcl.Evasive == nil || *orcl.Evasive != 0 {
		t.Errorf("ORCL_10K_2023#0 = %+v, want weak label 0", orcl)
	}

	ibm := byKey[models.PassageKey{DocumentID: "IBM_10K_2023", PassageIndex: 0}]
	if ibm.Source != models.SourceHuman || ibm.Evasive == nil || *ibm.Evasive != 0 {
		t.Errorf("IBM_10K_2023#0 = %+v, want human label 0", ibm)
	}
	if ibm.MarketAdverse == nil || *ibm.MarketAdverse {
		t.Error("IBM_10K_2023#0 should carry a non-adverse market label")
	}

	goog := byKey[models.PassageKey{DocumentID: "GOOG_10K_2023", PassageIndex: 0}]
	if goog.MarketAdverse != nil || goog.ForwardReturn != nil {
		t.Errorf("GOOG_10K_2023#0 market join = %+v, want excluded", goog)
	}
}

func TestRunReproducibility(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t, cfg)
	ctx := context.Background()

	runner := New(cfg, st, nil, zap.NewNop())
	first, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if first.Run.RunID == second.Run.RunID {
		t.Fatal("two runs share a run ID")
	}

	firstPreds, err := st.Predictions.List(ctx, first.Run.RunID, "")
	if err != nil {
		t.Fatalf("Predictions.List(first) error = %v", err)
	}
	secondPreds, err := st.Predictions.List(ctx, second.Run.RunID, "")
	if err != nil {
		t.Fatalf("Predictions.List(second) error = %v", err)
	}
	if len(firstPreds) == 0 || len(firstPreds) != len(secondPreds) {
		t.Fatalf("prediction counts differ: %d vs %d", len(firstPreds), len(secondPreds))
	}
	for i := range firstPreds {
		a, b := firstPreds[i], secondPreds[i]
		if a.DocumentID != b.DocumentID || a.PassageIndex != b.PassageIndex || a.Model != b.Model {
			t.Fatalf("prediction %d identity differs: %s/%s vs %s/%s",
				i, a.Model, a.Key(), b.Model, b.Key())
		}
		if a.Probability != b.Probability || a.Predicted != b.Predicted {
			t.Errorf("prediction %s/%s not reproduced: %v/%d vs %v/%d",
				a.Model, a.Key(), a.Probability, a.Predicted, b.Probability, b.Predicted)
		}
	}
}
