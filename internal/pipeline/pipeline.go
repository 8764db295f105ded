// Package pipeline orchestrates a full run: ingest filings, segment them
// into passages, extract features, construct labels, train both classifiers
// on the shared split, evaluate, and persist every artifact under one run ID.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/classifier"
	"github.com/yannmerakeb/nlp-financial-reports/internal/config"
	"github.com/yannmerakeb/nlp-financial-reports/internal/encoder"
	"github.com/yannmerakeb/nlp-financial-reports/internal/evaluation"
	"github.com/yannmerakeb/nlp-financial-reports/internal/features"
	"github.com/yannmerakeb/nlp-financial-reports/internal/ingest"
	"github.com/yannmerakeb/nlp-financial-reports/internal/labels"
	"github.com/yannmerakeb/nlp-financial-reports/internal/market"
	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
	"github.com/yannmerakeb/nlp-financial-reports/internal/notify"
	"github.com/yannmerakeb/nlp-financial-reports/internal/segment"
	"github.com/yannmerakeb/nlp-financial-reports/internal/store"
)

// Runner executes pipeline stages against one configuration. The store and
// notifier may be nil; stages then run without persistence or notifications,
// which is how the stage subcommands and dry runs use it.
type Runner struct {
	cfg   *config.Config
	store *store.Store
	notif *notify.Notifier
	log   *zap.Logger
}

func New(cfg *config.Config, st *store.Store, notif *notify.Notifier, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg, store: st, notif: notif, log: log}
}

// Corpus is everything derived from the filings before labeling: the
// documents that survived segmentation, their passages, and the feature
// vectors. Skip counters feed the run metadata.
type Corpus struct {
	Documents        []models.Document
	Passages         []models.Passage
	Features         []models.FeatureVector
	SkippedDocuments int
	SkippedPassages  int
}

// TrainResult bundles the split, the assembled dataset, both fitted models,
// and their held-out prediction records.
type TrainResult struct {
	Split       *classifier.Split
	Dataset     *classifier.Dataset
	Baseline    *classifier.Baseline
	Advanced    *classifier.Advanced
	Predictions []models.PredictionRecord
}

// Run executes the whole pipeline once. The run is recorded before the first
// stage and marked complete or failed afterwards, so interrupted runs stay
// visible in the store.
func (r *Runner) Run(ctx context.Context) (*models.EvaluationReport, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	log := r.log.With(zap.String("run_id", runID))
	log.Info("pipeline run started",
		zap.Int64("seed", r.cfg.Training.Seed),
		zap.String("filings_dir", r.cfg.Data.FilingsDir))

	if r.store != nil {
		run := &models.Run{
			ID:         runID,
			Status:     models.RunRunning,
			StartedAt:  startedAt,
			Seed:       r.cfg.Training.Seed,
			ConfigYAML: r.cfg.Dump(),
		}
		if err := r.store.Runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	report, err := r.execute(ctx, runID, startedAt)
	if err != nil {
		r.fail(runID, err, log)
		return nil, err
	}

	if r.store != nil {
		// The run context may already be cancelled; the terminal status
		// must still land.
		if err := r.store.Runs.Finish(context.Background(), runID, models.RunComplete, report.Run.FinishedAt, nil); err != nil {
			log.Error("failed to mark run complete", zap.Error(err))
		}
	}
	if err := r.notif.RunCompleted(report); err != nil {
		log.Warn("completion notification failed", zap.Error(err))
	}

	log.Info("pipeline run complete",
		zap.Int("documents", report.Run.Documents),
		zap.Int("passages", report.Run.Passages),
		zap.Duration("elapsed", report.Run.FinishedAt.Sub(startedAt)))
	return report, nil
}

func (r *Runner) execute(ctx context.Context, runID string, startedAt time.Time) (*models.EvaluationReport, error) {
	docs, stats, err := r.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no parseable filings in %s", r.cfg.Data.FilingsDir)
	}

	corpus, err := r.Materialize(ctx, docs)
	if err != nil {
		return nil, err
	}

	labelled, err := r.BuildLabels(corpus)
	if err != nil {
		return nil, err
	}

	trained, err := r.Train(ctx, corpus, labelled, runID)
	if err != nil {
		return nil, err
	}

	report, err := r.Evaluate(trained.Predictions, labelled.Labels)
	if err != nil {
		return nil, err
	}
	report.Run.RunID = runID
	report.Run.StartedAt = startedAt
	report.Run.FinishedAt = time.Now().UTC()
	report.Run.SkippedDocuments = stats.Skipped + corpus.SkippedDocuments
	report.Run.SkippedPassages = corpus.SkippedPassages

	if err := r.persist(ctx, runID, corpus, labelled.Labels, trained.Predictions, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) fail(runID string, cause error, log *zap.Logger) {
	log.Error("pipeline run failed", zap.Error(cause))
	if r.store != nil {
		msg := cause.Error()
		if err := r.store.Runs.Finish(context.Background(), runID, models.RunFailed, time.Now().UTC(), &msg); err != nil {
			log.Error("failed to mark run failed", zap.Error(err))
		}
	}
	if err := r.notif.RunFailed(runID, cause); err != nil {
		log.Warn("failure notification failed", zap.Error(err))
	}
}

// LoadDocuments scans the configured filings directory.
func (r *Runner) LoadDocuments(ctx context.Context) ([]models.Document, ingest.Stats, error) {
	loader := ingest.NewLoader(r.cfg.Data.FilingsDir, int64(r.cfg.Data.MaxDocumentBytes), r.log)
	return loader.Load(ctx)
}

type docResult struct {
	dropped  bool
	passages []models.Passage
	feats    []models.FeatureVector
	skipped  int
}

// Materialize segments the documents and extracts features across the
// configured worker count. A document that fails segmentation is dropped
// whole; a passage that fails extraction keeps its text but contributes no
// feature vector. Both outcomes are counted, never silent.
func (r *Runner) Materialize(ctx context.Context, docs []models.Document) (*Corpus, error) {
	hedge, err := features.LoadHedgeLexicon(r.cfg.Features.HedgeLexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load hedge lexicon: %w", err)
	}
	vague, err := features.LoadVagueLexicon(r.cfg.Features.VagueLexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load vagueness lexicon: %w", err)
	}
	extractor := features.NewExtractor(hedge, vague, features.NewLexiconSentiment(), r.cfg.Features.ReadabilityFormula)
	segmenter := segment.New(r.cfg.Segmenter.MaxPassageTokens, r.cfg.Data.MaxDocumentBytes)

	workers := r.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	// Results land at the document's own index, so no ordering or locking
	// is needed to keep the output deterministic.
	results := make([]docResult, len(docs))
	jobs := make(chan int, len(docs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					results[i] = r.materializeDoc(segmenter, extractor, &docs[i])
				}
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpus := &Corpus{}
	for i, res := range results {
		if res.dropped {
			corpus.SkippedDocuments++
			continue
		}
		corpus.Documents = append(corpus.Documents, docs[i])
		corpus.Passages = append(corpus.Passages, res.passages...)
		corpus.Features = append(corpus.Features, res.feats...)
		corpus.SkippedPassages += res.skipped
	}

	r.log.Info("corpus materialized",
		zap.Int("documents", len(corpus.Documents)),
		zap.Int("passages", len(corpus.Passages)),
		zap.Int("skipped_documents", corpus.SkippedDocuments),
		zap.Int("skipped_passages", corpus.SkippedPassages),
		zap.Int("workers", workers))
	return corpus, nil
}

func (r *Runner) materializeDoc(seg *segment.Segmenter, ex *features.Extractor, doc *models.Document) docResult {
	passages, err := seg.Segment(doc)
	if err != nil {
		r.log.Warn("document dropped", zap.String("document", doc.ID), zap.Error(err))
		return docResult{dropped: true}
	}

	res := docResult{passages: passages}
	for i := range passages {
		fv, err := ex.Extract(&passages[i])
		if err != nil {
			r.log.Warn("passage excluded from features",
				zap.String("passage", passages[i].Key().String()),
				zap.Error(err))
			res.skipped++
			continue
		}
		res.feats = append(res.feats, fv)
	}
	return res
}

// BuildLabels loads market data and any human annotations, then derives one
// label per passage.
func (r *Runner) BuildLabels(corpus *Corpus) (labels.Result, error) {
	data, err := market.Load(r.cfg.Market.PricesDir, r.log)
	if err != nil {
		return labels.Result{}, err
	}
	anns, err := labels.LoadAnnotations(r.cfg.Data.AnnotationsFile)
	if err != nil {
		return labels.Result{}, err
	}

	builder := labels.NewBuilder(labels.Params{
		Weights: labels.Weights{
			Hedge:   r.cfg.Labels.Weights.Hedge,
			Vague:   r.cfg.Labels.Weights.Vague,
			Modal:   r.cfg.Labels.Weights.Modal,
			Passive: r.cfg.Labels.Weights.Passive,
			Numeric: r.cfg.Labels.Weights.Numeric,
		},
		WeakCutoff:       r.cfg.Labels.WeakCutoff,
		WindowDays:       r.cfg.Market.WindowDays,
		AdverseThreshold: r.cfg.Market.AdverseReturnThreshold,
	}, data, r.log)

	res := builder.Build(corpus.Documents, corpus.Passages, corpus.Features, anns)
	r.log.Info("labels constructed",
		zap.Int("human", res.HumanLabeled),
		zap.Int("weak", res.WeakLabeled),
		zap.Int("unlabeled", res.Unlabeled),
		zap.Int("excluded_market", res.ExcludedMarket))
	return res, nil
}

// Train splits the labeled documents, fits the baseline and the advanced
// classifier on the same partitions, and scores the held-out passages with
// both models under the given run ID.
func (r *Runner) Train(ctx context.Context, corpus *Corpus, labelled labels.Result, runID string) (*TrainResult, error) {
	split, err := classifier.SplitDocuments(labelled.Labels, classifier.SplitOptions{
		TrainRatio:      r.cfg.Training.SplitRatio,
		ValidationRatio: r.cfg.Training.ValidationRatio,
		Seed:            r.cfg.Training.Seed,
	})
	if err != nil {
		return nil, err
	}
	ds := classifier.Assemble(corpus.Passages, corpus.Features, labelled.Labels, split)
	r.log.Info("dataset assembled",
		zap.Int("train", len(ds.Train)),
		zap.Int("validation", len(ds.Validation)),
		zap.Int("eval", len(ds.Eval)))

	baseline := classifier.NewBaseline(classifier.BaselineOptions{
		MaxVocabulary:        r.cfg.Training.MaxVocabulary,
		LearningRate:         r.cfg.Training.LearningRate,
		Regularization:       r.cfg.Training.Regularization,
		Epochs:               r.cfg.Training.Epochs,
		BatchSize:            r.cfg.Training.BatchSize,
		Seed:                 r.cfg.Training.Seed,
		IncludeDenseFeatures: r.cfg.Training.IncludeDenseFeatures,
	}, r.log)
	if err := baseline.Fit(ctx, ds.Train, ds.Validation); err != nil {
		return nil, err
	}

	enc, err := encoder.New(encoder.Options{
		Backend:   r.cfg.Encoder.Backend,
		Model:     r.cfg.Encoder.Model,
		Dimension: r.cfg.Encoder.Dimension,
		URL:       r.cfg.Encoder.URL,
		APIKey:    os.Getenv("GEMINI_API_KEY"),
	}, r.log)
	if err != nil {
		return nil, err
	}
	advanced := classifier.NewAdvanced(enc, classifier.AdvancedOptions{
		LearningRate:         r.cfg.Training.LearningRate,
		Regularization:       r.cfg.Training.Regularization,
		Epochs:               r.cfg.Training.Epochs,
		BatchSize:            r.cfg.Training.BatchSize,
		Patience:             r.cfg.Training.Patience,
		Seed:                 r.cfg.Training.Seed,
		IncludeDenseFeatures: r.cfg.Training.IncludeDenseFeatures,
	}, r.log)
	if err := advanced.Fit(ctx, ds.Train, ds.Validation); err != nil {
		return nil, err
	}

	trained := &TrainResult{Split: split, Dataset: ds, Baseline: baseline, Advanced: advanced}
	for _, m := range []classifier.Model{baseline, advanced} {
		recs, err := classifier.PredictAll(ctx, m, ds.Eval, runID)
		if err != nil {
			return nil, fmt.Errorf("score held-out passages with %s: %w", m.Name(), err)
		}
		trained.Predictions = append(trained.Predictions, recs...)
	}
	return trained, nil
}

// Evaluate derives the evaluation report from prediction records and labels.
func (r *Runner) Evaluate(preds []models.PredictionRecord, labelSet []models.Label) (*models.EvaluationReport, error) {
	engine, err := evaluation.New(evaluation.Options{
		ComparisonMetric: r.cfg.Evaluation.ComparisonMetric,
		BootstrapRounds:  r.cfg.Evaluation.BootstrapRounds,
		Seed:             r.cfg.Training.Seed,
		Aggregation:      r.cfg.Evaluation.Aggregation,
		Association:      r.cfg.Evaluation.Association,
	}, r.log)
	if err != nil {
		return nil, err
	}
	return engine.Evaluate(preds, labelSet)
}

func (r *Runner) persist(ctx context.Context, runID string, corpus *Corpus, labelSet []models.Label, preds []models.PredictionRecord, report *models.EvaluationReport) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Passages.Save(ctx, runID, corpus.Passages); err != nil {
		return fmt.Errorf("persist passages: %w", err)
	}
	if err := r.store.Features.Save(ctx, runID, corpus.Features); err != nil {
		return fmt.Errorf("persist features: %w", err)
	}
	if err := r.store.Labels.Save(ctx, runID, labelSet); err != nil {
		return fmt.Errorf("persist labels: %w", err)
	}
	if err := r.store.Predictions.Save(ctx, preds); err != nil {
		return fmt.Errorf("persist predictions: %w", err)
	}
	if err := r.store.Reports.Save(ctx, runID, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	r.log.Info("run artifacts persisted",
		zap.String("run_id", runID),
		zap.Int("passages", len(corpus.Passages)),
		zap.Int("predictions", len(preds)))
	return nil
}
