package evaluation

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// Options configure the evaluation engine.
type Options struct {
	ComparisonMetric string // roc_auc | f1
	BootstrapRounds  int
	Seed             int64
	Aggregation      string // mean | max
	Association      string // point_biserial | mean_diff
}

// Engine derives EvaluationReports from prediction records and labels. The
// engine is stateless between calls: the same records and options always
// produce the same report.
type Engine struct {
	opts Options
	test AssociationTest
	log  *zap.Logger
}

// New validates the options and builds an engine.
func New(opts Options, log *zap.Logger) (*Engine, error) {
	if opts.ComparisonMetric == "" {
		opts.ComparisonMetric = "roc_auc"
	}
	switch opts.ComparisonMetric {
	case "roc_auc", "f1":
	default:
		return nil, fmt.Errorf("unknown comparison metric %q", opts.ComparisonMetric)
	}
	if opts.BootstrapRounds <= 0 {
		opts.BootstrapRounds = 1000
	}
	if opts.Aggregation == "" {
		opts.Aggregation = "mean"
	}
	switch opts.Aggregation {
	case "mean", "max":
	default:
		return nil, fmt.Errorf("unknown aggregation rule %q", opts.Aggregation)
	}
	test, err := NewAssociationTest(opts.Association)
	if err != nil {
		return nil, err
	}
	return &Engine{opts: opts, test: test, log: log}, nil
}

// Evaluate computes per-model metrics, the paired model comparison, and the
// evasiveness/market association for one run's prediction records.
func (e *Engine) Evaluate(preds []models.PredictionRecord, labels []models.Label) (*models.EvaluationReport, error) {
	if len(preds) == 0 {
		return nil, fmt.Errorf("no prediction records to evaluate")
	}

	labelByKey := make(map[models.PassageKey]*models.Label, len(labels))
	for i := range labels {
		labelByKey[labels[i].Key()] = &labels[i]
	}

	byModel := make(map[string][]scored)
	paired := make(map[models.PassageKey]*pairedScore)
	for i := range preds {
		pred := &preds[i]
		label := labelByKey[pred.Key()]
		if label == nil || label.Evasive == nil {
			continue
		}
		s := scored{
			docID:     pred.DocumentID,
			prob:      pred.Probability,
			predicted: pred.Predicted,
			y:         *label.Evasive,
		}
		byModel[pred.Model] = append(byModel[pred.Model], s)

		switch pred.Model {
		case models.ModelBaseline, models.ModelAdvanced:
			ps := paired[pred.Key()]
			if ps == nil {
				ps = &pairedScore{baseline: scored{predicted: -1}, advanced: scored{predicted: -1}}
				paired[pred.Key()] = ps
			}
			if pred.Model == models.ModelBaseline {
				ps.baseline = s
			} else {
				ps.advanced = s
			}
		}
	}

	names := make([]string, 0, len(byModel))
	for name := range byModel {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &models.EvaluationReport{Run: e.runMeta(labels)}
	for _, name := range names {
		report.Models = append(report.Models, modelMetrics(name, byModel[name]))
	}

	byDoc := make(map[string][]pairedScore)
	for key, ps := range paired {
		if ps.baseline.predicted < 0 || ps.advanced.predicted < 0 {
			continue
		}
		byDoc[key.DocumentID] = append(byDoc[key.DocumentID], *ps)
	}
	if len(byDoc) > 0 {
		report.Comparison = compareModels(byDoc, e.opts.ComparisonMetric, e.opts.BootstrapRounds, e.opts.Seed)
	}

	docMarket := docMarketLabels(labels)
	for _, name := range names {
		assoc, err := e.associate(name, byModel[name], docMarket)
		if err != nil {
			e.log.Warn("association test skipped",
				zap.String("model", name),
				zap.Error(err))
			continue
		}
		report.Associations = append(report.Associations, assoc)
	}
	return report, nil
}

// associate aggregates a model's passage probabilities to document level and
// runs the configured association test against the market-reaction label.
func (e *Engine) associate(model string, examples []scored, docMarket map[string]*bool) (models.Association, error) {
	type agg struct {
		sum float64
		max float64
		n   int
	}
	perDoc := make(map[string]*agg)
	for _, ex := range examples {
		a := perDoc[ex.docID]
		if a == nil {
			a = &agg{max: ex.prob}
			perDoc[ex.docID] = a
		}
		a.sum += ex.prob
		if ex.prob > a.max {
			a.max = ex.prob
		}
		a.n++
	}

	docIDs := make([]string, 0, len(perDoc))
	for id := range perDoc {
		if docMarket[id] != nil {
			docIDs = append(docIDs, id)
		}
	}
	sort.Strings(docIDs)

	scores := make([]float64, len(docIDs))
	adverse := make([]bool, len(docIDs))
	nAdverse := 0
	for i, id := range docIDs {
		a := perDoc[id]
		if e.opts.Aggregation == "max" {
			scores[i] = a.max
		} else {
			scores[i] = a.sum / float64(a.n)
		}
		adverse[i] = *docMarket[id]
		if adverse[i] {
			nAdverse++
		}
	}

	effect, p, err := e.test.Test(scores, adverse)
	if err != nil {
		return models.Association{}, err
	}
	return models.Association{
		Test:        e.test.Name(),
		Aggregation: e.opts.Aggregation,
		Model:       model,
		EffectSize:  effect,
		PValue:      p,
		Documents:   len(docIDs),
		Adverse:     nAdverse,
	}, nil
}

// docMarketLabels lifts the passage-level market pointers to one value per
// document. Documents whose labels all lack a market join stay nil and are
// excluded from correlation.
func docMarketLabels(labels []models.Label) map[string]*bool {
	out := make(map[string]*bool)
	for i := range labels {
		l := &labels[i]
		if _, seen := out[l.DocumentID]; !seen || out[l.DocumentID] == nil {
			out[l.DocumentID] = l.MarketAdverse
		}
	}
	return out
}

// runMeta fills the accounting block derivable from the label records alone;
// the orchestrator overlays run identity, timing, and skip counters.
func (e *Engine) runMeta(labels []models.Label) models.RunMeta {
	meta := models.RunMeta{Passages: len(labels)}
	docs := make(map[string]bool)
	docMarket := docMarketLabels(labels)
	for i := range labels {
		l := &labels[i]
		docs[l.DocumentID] = true
		if l.Evasive == nil {
			continue
		}
		switch l.Source {
		case models.SourceHuman:
			meta.HumanLabeled++
		case models.SourceWeak:
			meta.WeakLabeled++
		}
	}
	meta.Documents = len(docs)
	for _, adverse := range docMarket {
		if adverse == nil {
			meta.ExcludedFromCorrelation++
		}
	}
	return meta
}
