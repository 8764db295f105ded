package labels

import (
	"errors"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/market"
	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// Weights combines the ambiguity features into the weak-label composite
// score. Numeric density is subtracted: precise figures reduce evasiveness.
type Weights struct {
	Hedge   float64
	Vague   float64
	Modal   float64
	Passive float64
	Numeric float64
}

// Params configures label construction for a run.
type Params struct {
	Weights          Weights
	WeakCutoff       float64
	WindowDays       int
	AdverseThreshold float64
}

// Result carries the constructed labels and the counts the run metadata
// reports so silent data loss stays observable.
type Result struct {
	Labels         []models.Label
	HumanLabeled   int
	WeakLabeled    int
	Unlabeled      int
	ExcludedMarket int // documents with no market join, excluded from correlation
}

// Builder derives evasiveness and market-reaction labels. Human annotations
// are authoritative; passages without one get a weak label thresholded from
// the composite ambiguity score. Labels are write-once: nothing downstream
// mutates them.
type Builder struct {
	params Params
	data   *market.Data
	log    *zap.Logger
}

func NewBuilder(params Params, data *market.Data, log *zap.Logger) *Builder {
	return &Builder{params: params, data: data, log: log}
}

// AmbiguityScore computes the weighted combination of a passage's ambiguity
// features, clamped to [0,1]. Exported so threshold sweeps can reuse it.
func (b *Builder) AmbiguityScore(fv models.FeatureVector) float64 {
	w := b.params.Weights
	score := fv.HedgeDensity*w.Hedge +
		fv.VagueDensity*w.Vague +
		fv.ModalRate*w.Modal +
		fv.PassiveRate*w.Passive -
		fv.NumericDensity*w.Numeric
	return clamp01(score)
}

// Build constructs one Label per passage. The market-reaction side is joined
// per document over the configured post-filing window; documents with no
// market record keep a nil MarketAdverse and are counted as excluded.
func (b *Builder) Build(
	docs []models.Document,
	passages []models.Passage,
	feats []models.FeatureVector,
	annotations []models.HumanAnnotation,
) Result {
	featByKey := make(map[models.PassageKey]models.FeatureVector, len(feats))
	for _, fv := range feats {
		featByKey[fv.Key()] = fv
	}

	annByKey := make(map[models.PassageKey]models.HumanAnnotation, len(annotations))
	passageKeys := make(map[models.PassageKey]struct{}, len(passages))
	for _, p := range passages {
		passageKeys[p.Key()] = struct{}{}
	}
	for _, ann := range annotations {
		key := models.PassageKey{DocumentID: ann.DocumentID, PassageIndex: ann.PassageIndex}
		if _, ok := passageKeys[key]; !ok {
			b.log.Warn("annotation for unknown passage", zap.String("passage", key.String()))
			continue
		}
		if _, dup := annByKey[key]; dup {
			b.log.Warn("duplicate annotation, later row wins", zap.String("passage", key.String()))
		}
		annByKey[key] = ann
	}

	adverseByDoc := b.joinMarket(docs)

	var res Result
	res.ExcludedMarket = len(docs) - len(adverseByDoc)
	for _, p := range passages {
		label := models.Label{
			DocumentID:   p.DocumentID,
			PassageIndex: p.PassageIndex,
			WindowDays:   b.params.WindowDays,
		}

		if ann, ok := annByKey[p.Key()]; ok {
			v := ann.Evasive
			label.Evasive = &v
			label.Source = models.SourceHuman
			res.HumanLabeled++
		} else if fv, ok := featByKey[p.Key()]; ok {
			score := b.AmbiguityScore(fv)
			v := 0
			if score >= b.params.WeakCutoff {
				v = 1
			}
			label.Evasive = &v
			label.Source = models.SourceWeak
			label.AmbiguityScore = score
			res.WeakLabeled++
		} else {
			res.Unlabeled++
		}

		if m, ok := adverseByDoc[p.DocumentID]; ok {
			adverse := m.adverse
			ret := m.forwardReturn
			label.MarketAdverse = &adverse
			label.ForwardReturn = &ret
		}

		res.Labels = append(res.Labels, label)
	}
	return res
}

type marketJoin struct {
	adverse       bool
	forwardReturn float64
}

func (b *Builder) joinMarket(docs []models.Document) map[string]marketJoin {
	joined := make(map[string]marketJoin, len(docs))
	for _, doc := range docs {
		ret, err := b.data.ForwardReturn(doc.Ticker, doc.FilingDate, b.params.WindowDays)
		if err != nil {
			var missing *market.MissingMarketDataError
			if errors.As(err, &missing) {
				b.log.Warn("document excluded from correlation",
					zap.String("document", doc.ID),
					zap.Error(err))
				continue
			}
			b.log.Error("market join failed", zap.String("document", doc.ID), zap.Error(err))
			continue
		}
		joined[doc.ID] = marketJoin{
			adverse:       ret < b.params.AdverseThreshold,
			forwardReturn: ret,
		}
	}
	return joined
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
