package labels

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// LoadAnnotations reads researcher-supplied ground truth from a CSV with
// columns document_id,passage_index,evasive,annotator. An empty path means no
// human labels for the run.
func LoadAnnotations(path string) ([]models.HumanAnnotation, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotations: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}

	var out []models.HumanAnnotation
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("annotations row %d: want at least 3 columns, got %d", i+1, len(row))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "document_id") {
			continue
		}

		idx, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("annotations row %d: bad passage index %q", i+1, row[1])
		}
		evasive, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || (evasive != 0 && evasive != 1) {
			return nil, fmt.Errorf("annotations row %d: evasive must be 0 or 1, got %q", i+1, row[2])
		}

		ann := models.HumanAnnotation{
			DocumentID:   strings.TrimSpace(row[0]),
			PassageIndex: idx,
			Evasive:      evasive,
		}
		if len(row) > 3 {
			ann.Annotator = strings.TrimSpace(row[3])
		}
		out = append(out, ann)
	}
	return out, nil
}
