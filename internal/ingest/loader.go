package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

const manifestName = "filings.csv"

// Stats counts what a directory scan did with each candidate file.
type Stats struct {
	Scanned int
	Loaded  int
	Skipped int
}

// Loader reads raw annual filings from a directory. Files follow the
// TICKER_10K_YEAR.txt convention; an optional filings.csv manifest supplies
// exact filing dates, otherwise January 1 of the filename year is assumed.
type Loader struct {
	dir      string
	maxBytes int64
	log      *zap.Logger
}

func NewLoader(dir string, maxBytes int64, log *zap.Logger) *Loader {
	return &Loader{dir: dir, maxBytes: maxBytes, log: log}
}

// Load scans the filings directory and returns one Document per parseable
// file. Individual bad files are logged and counted, never fatal; only an
// unreadable directory aborts the scan.
func (l *Loader) Load(ctx context.Context) ([]models.Document, Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, stats, fmt.Errorf("read filings dir %s: %w", l.dir, err)
	}

	dates, err := l.readManifest()
	if err != nil {
		return nil, stats, err
	}

	var docs []models.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if entry.IsDir() || !hasFilingExt(entry.Name()) {
			continue
		}
		stats.Scanned++

		doc, err := l.loadFile(entry.Name(), dates)
		if err != nil {
			stats.Skipped++
			l.log.Warn("skipping filing",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		stats.Loaded++
		docs = append(docs, doc)
	}

	l.log.Info("filings loaded",
		zap.Int("scanned", stats.Scanned),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped))
	return docs, stats, nil
}

func (l *Loader) loadFile(name string, dates map[string]time.Time) (models.Document, error) {
	ticker, year, err := ParseFilename(name)
	if err != nil {
		return models.Document{}, err
	}

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, err
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return models.Document{}, fmt.Errorf("file size %d exceeds limit %d", info.Size(), l.maxBytes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}

	text := ExtractText(string(raw))
	if text == "" {
		return models.Document{}, fmt.Errorf("empty document body")
	}

	var blocks []models.TextBlock
	for _, sec := range ExtractSections(text) {
		cleaned := RemoveXBRLNoise(CleanText(sec.Text))
		if len(cleaned) > minSectionChars {
			blocks = append(blocks, models.TextBlock{Section: sec.Section, Text: cleaned})
		}
	}
	// No recognizable Item headers: keep the whole cleaned body as one
	// untyped block and let the segmenter's window fallback handle it.
	if len(blocks) == 0 {
		cleaned := RemoveXBRLNoise(CleanText(text))
		if cleaned == "" {
			return models.Document{}, fmt.Errorf("no text content after cleaning")
		}
		blocks = []models.TextBlock{{Section: models.SectionOther, Text: cleaned}}
	}

	filingDate := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if d, ok := dates[name]; ok {
		filingDate = d
	}

	return models.Document{
		ID:         strings.TrimSuffix(name, filepath.Ext(name)),
		Ticker:     ticker,
		FilingDate: filingDate,
		Blocks:     blocks,
	}, nil
}

// ParseFilename splits a TICKER_10K_YEAR.ext name into ticker and year.
func ParseFilename(name string) (string, int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("filename %q does not match TICKER_10K_YEAR", name)
	}
	year, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || year < 1900 || year > 2100 {
		return "", 0, fmt.Errorf("filename %q has no trailing year", name)
	}
	ticker := strings.ToUpper(parts[0])
	if ticker == "" {
		return "", 0, fmt.Errorf("filename %q has empty ticker", name)
	}
	return ticker, year, nil
}

// readManifest loads optional exact filing dates, keyed by filename. Layout:
// filename,ticker,filing_date with an ISO date column. A missing manifest is
// fine; a malformed one is not.
func (l *Loader) readManifest() (map[string]time.Time, error) {
	path := filepath.Join(l.dir, manifestName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	dates := make(map[string]time.Time, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("manifest row %d: want 3 columns, got %d", i+1, len(row))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "filename") {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("manifest row %d: %w", i+1, err)
		}
		dates[strings.TrimSpace(row[0])] = d
	}
	return dates, nil
}

func hasFilingExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".htm", ".html":
		return true
	}
	return false
}
