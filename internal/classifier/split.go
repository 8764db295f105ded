package classifier

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// Partition names the role a document plays in training.
type Partition string

const (
	PartitionTrain      Partition = "train"
	PartitionValidation Partition = "validation"
	PartitionEval       Partition = "eval"
	PartitionNone       Partition = "none"
)

// SplitOptions configure the shared document-level split.
type SplitOptions struct {
	TrainRatio      float64
	ValidationRatio float64
	Seed            int64
}

// Split assigns whole documents to train, validation, and held-out eval
// partitions. Both classifiers train and evaluate on the same split so their
// comparison covers exactly the same held-out documents, and no document ever
// straddles partitions.
type Split struct {
	Train      map[string]bool
	Validation map[string]bool
	Eval       map[string]bool
}

// SplitDocuments builds a seeded, stratified document-level split from the
// labeled passages. Documents are stratified by their majority evasiveness
// label so both partitions keep a comparable class balance; the validation
// share is carved out of the training share. Unlabeled documents are not
// assigned.
func SplitDocuments(labels []models.Label, opts SplitOptions) (*Split, error) {
	if opts.TrainRatio <= 0 || opts.TrainRatio >= 1 {
		return nil, fmt.Errorf("train ratio must lie in (0,1), got %v", opts.TrainRatio)
	}
	if opts.ValidationRatio < 0 || opts.ValidationRatio >= 1 {
		return nil, fmt.Errorf("validation ratio must lie in [0,1), got %v", opts.ValidationRatio)
	}

	type docStat struct {
		positive int
		total    int
	}
	stats := make(map[string]*docStat)
	for i := range labels {
		l := &labels[i]
		if l.Evasive == nil {
			continue
		}
		s := stats[l.DocumentID]
		if s == nil {
			s = &docStat{}
			stats[l.DocumentID] = s
		}
		s.total++
		s.positive += *l.Evasive
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no labeled documents to split")
	}

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var strata [2][]string
	for _, id := range ids {
		s := stats[id]
		if 2*s.positive >= s.total {
			strata[1] = append(strata[1], id)
		} else {
			strata[0] = append(strata[0], id)
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var train, validation, eval []string
	for _, stratum := range strata {
		if len(stratum) == 0 {
			continue
		}
		rng.Shuffle(len(stratum), func(i, j int) {
			stratum[i], stratum[j] = stratum[j], stratum[i]
		})

		nEval := int(float64(len(stratum))*(1-opts.TrainRatio) + 0.5)
		if nEval >= len(stratum) {
			nEval = len(stratum) - 1
		}
		trainIDs := stratum[:len(stratum)-nEval]
		eval = append(eval, stratum[len(stratum)-nEval:]...)

		nVal := int(float64(len(trainIDs))*opts.ValidationRatio + 0.5)
		if nVal >= len(trainIDs) {
			nVal = len(trainIDs) - 1
		}
		validation = append(validation, trainIDs[len(trainIDs)-nVal:]...)
		train = append(train, trainIDs[:len(trainIDs)-nVal]...)
	}

	// Rounding can leave the eval partition empty on tiny corpora; the
	// comparison protocol still needs held-out documents whenever more than
	// one exists.
	if len(eval) == 0 && len(train) > 1 {
		eval = append(eval, train[len(train)-1])
		train = train[:len(train)-1]
	}

	split := &Split{
		Train:      make(map[string]bool, len(train)),
		Validation: make(map[string]bool, len(validation)),
		Eval:       make(map[string]bool, len(eval)),
	}
	for _, id := range train {
		split.Train[id] = true
	}
	for _, id := range validation {
		split.Validation[id] = true
	}
	for _, id := range eval {
		split.Eval[id] = true
	}
	return split, nil
}

// Assign reports which partition a document belongs to.
func (s *Split) Assign(documentID string) Partition {
	switch {
	case s.Train[documentID]:
		return PartitionTrain
	case s.Validation[documentID]:
		return PartitionValidation
	case s.Eval[documentID]:
		return PartitionEval
	default:
		return PartitionNone
	}
}

// Example is one supervised training or evaluation instance: the passage
// text, its dense feature block in canonical order, and its label.
type Example struct {
	Key    models.PassageKey
	Text   string
	Dense  []float64
	Y      int
	Source models.LabelSource
}

// Dataset holds the assembled examples per partition.
type Dataset struct {
	Train      []Example
	Validation []Example
	Eval       []Example
}

// Assemble joins passages, features, and labels into per-partition examples.
// Passages without an evasiveness label or without an extracted feature
// vector are left out; documents outside the split are ignored.
func Assemble(passages []models.Passage, feats []models.FeatureVector, labels []models.Label, split *Split) *Dataset {
	featByKey := make(map[models.PassageKey]*models.FeatureVector, len(feats))
	for i := range feats {
		featByKey[feats[i].Key()] = &feats[i]
	}
	labelByKey := make(map[models.PassageKey]*models.Label, len(labels))
	for i := range labels {
		labelByKey[labels[i].Key()] = &labels[i]
	}

	ds := &Dataset{}
	for i := range passages {
		p := &passages[i]
		label := labelByKey[p.Key()]
		if label == nil || label.Evasive == nil {
			continue
		}
		fv := featByKey[p.Key()]
		if fv == nil {
			continue
		}
		ex := Example{
			Key:    p.Key(),
			Text:   p.Text,
			Dense:  fv.Values(),
			Y:      *label.Evasive,
			Source: label.Source,
		}
		switch split.Assign(p.DocumentID) {
		case PartitionTrain:
			ds.Train = append(ds.Train, ex)
		case PartitionValidation:
			ds.Validation = append(ds.Validation, ex)
		case PartitionEval:
			ds.Eval = append(ds.Eval, ex)
		}
	}
	return ds
}
