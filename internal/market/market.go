package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// MissingMarketDataError reports that a ticker has no usable price window
// anchored at a filing date. Documents hitting it are excluded from the
// correlation analysis, never imputed.
type MissingMarketDataError struct {
	Ticker     string
	From       time.Time
	WindowDays int
}

func (e *MissingMarketDataError) Error() string {
	return fmt.Sprintf("no market data for %s covering %d trading days from %s",
		e.Ticker, e.WindowDays, e.From.Format("2006-01-02"))
}

type pricePoint struct {
	date  time.Time
	close float64
}

// Data is the read-only market snapshot for a run: per-ticker price series
// sorted by date. Loaded once, shared across workers.
type Data struct {
	prices map[string][]pricePoint
}

// Accepted date layouts. Exported price CSVs are day-first; ISO also passes.
var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

// Load reads every TICKER.csv in dir. Files are semicolon-separated with a
// header row and two columns, date and closing price. A malformed file is
// skipped with a warning; only an unreadable directory is fatal.
func Load(dir string, log *zap.Logger) (*Data, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prices dir %s: %w", dir, err)
	}

	data := &Data{prices: make(map[string][]pricePoint)}
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".csv" {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		points, err := loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn("skipping price file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		data.prices[ticker] = points
	}

	log.Info("market data loaded", zap.Int("tickers", len(data.prices)))
	return data, nil
}

func loadFile(path string) ([]pricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var points []pricePoint
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want 2 columns, got %d", i+1, len(row))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		date, err := parseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price %q", i+1, row[1])
		}
		points = append(points, pricePoint{date: date, close: close})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no price rows")
	}

	sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })
	return points, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

// HasTicker reports whether any prices were loaded for the ticker.
func (d *Data) HasTicker(ticker string) bool {
	_, ok := d.prices[strings.ToUpper(ticker)]
	return ok
}

// Tickers returns the loaded ticker symbols in sorted order.
func (d *Data) Tickers() []string {
	out := make([]string, 0, len(d.prices))
	for t := range d.prices {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Records returns the ticker's price rows for reporting, dates in ISO form.
func (d *Data) Records(ticker string) []models.MarketRecord {
	points := d.prices[strings.ToUpper(ticker)]
	out := make([]models.MarketRecord, len(points))
	for i, p := range points {
		out[i] = models.MarketRecord{
			Ticker: strings.ToUpper(ticker),
			Date:   p.date.Format("2006-01-02"),
			Close:  p.close,
		}
	}
	return out
}

// ForwardReturn computes the simple return over windowDays trading days,
// anchored at the first trading day on or after from:
// (close[anchor+window] - close[anchor]) / close[anchor].
func (d *Data) ForwardReturn(ticker string, from time.Time, windowDays int) (float64, error) {
	missing := &MissingMarketDataError{Ticker: ticker, From: from, WindowDays: windowDays}

	points, ok := d.prices[strings.ToUpper(ticker)]
	if !ok {
		return 0, missing
	}

	anchor := sort.Search(len(points), func(i int) bool {
		return !points[i].date.Before(from)
	})
	if anchor+windowDays >= len(points) {
		return 0, missing
	}

	base := points[anchor].close
	if base == 0 {
		return 0, missing
	}
	return (points[anchor+windowDays].close - base) / base, nil
}
