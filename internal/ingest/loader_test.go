package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		ticker  string
		year    int
		wantErr bool
	}{
		{name: "standard", file: "AAPL_10K_2023.txt", ticker: "AAPL", year: 2023},
		{name: "lowercase ticker", file: "msft_10K_2019.htm", ticker: "MSFT", year: 2019},
		{name: "extra segments", file: "TSLA_10K_amended_2021.txt", ticker: "TSLA", year: 2021},
		{name: "no underscore", file: "report.txt", wantErr: true},
		{name: "bad year", file: "AAPL_10K_20x3.txt", wantErr: true},
		{name: "implausible year", file: "AAPL_10K_1234.txt", wantErr: true},
		{name: "empty ticker", file: "_10K_2023.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticker, year, err := ParseFilename(tt.file)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFilename(%q) = %q/%d, want error", tt.file, ticker, year)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilename(%q) failed: %v", tt.file, err)
			}
			if ticker != tt.ticker || year != tt.year {
				t.Errorf("ParseFilename(%q) = %q/%d, want %q/%d", tt.file, ticker, year, tt.ticker, tt.year)
			}
		})
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL_10K_2023.txt",
		"The Company may experience significant risks in future periods. "+
			"Management believes results could vary.")
	writeFile(t, dir, "MSFT_10K_2019.txt",
		"<SEC-DOCUMENT><TEXT><html><body>Revenue grew across all segments in fiscal 2019.</body></html></TEXT></SEC-DOCUMENT>")
	writeFile(t, dir, "badname.txt", "unparseable filename")
	writeFile(t, dir, "notes.pdf", "wrong extension, never scanned")

	loader := NewLoader(dir, 1<<20, zap.NewNop())
	docs, stats, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if stats.Scanned != 3 || stats.Loaded != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want {Scanned:3 Loaded:2 Skipped:1}", stats)
	}
	if len(docs) != 2 {
		t.Fatalf("Load() returned %d documents, want 2", len(docs))
	}

	aapl := docs[0]
	if aapl.ID != "AAPL_10K_2023" || aapl.Ticker != "AAPL" {
		t.Errorf("doc identity = %s/%s, want AAPL_10K_2023/AAPL", aapl.ID, aapl.Ticker)
	}
	wantDate := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !aapl.FilingDate.Equal(wantDate) {
		t.Errorf("FilingDate = %v, want %v", aapl.FilingDate, wantDate)
	}
	if len(aapl.Blocks) != 1 || aapl.Blocks[0].Section != models.SectionOther {
		t.Fatalf("sectionless filing should fall back to one %q block, got %+v",
			models.SectionOther, aapl.Blocks)
	}
	if !strings.Contains(aapl.Blocks[0].Text, "the company may experience") {
		t.Errorf("block text not cleaned and lowercased: %q", aapl.Blocks[0].Text)
	}

	msft := docs[1]
	if msft.Ticker != "MSFT" {
		t.Errorf("docs[1].Ticker = %q, want MSFT", msft.Ticker)
	}
	if !strings.Contains(msft.Blocks[0].Text, "revenue grew across all segments") {
		t.Errorf("envelope body not extracted: %q", msft.Blocks[0].Text)
	}
}

func TestLoaderSkipsOversize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL_10K_2023.txt", strings.Repeat("risk factors everywhere ", 50))

	loader := NewLoader(dir, 64, zap.NewNop())
	docs, stats, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(docs) != 0 || stats.Skipped != 1 {
		t.Errorf("oversize file not skipped: docs=%d stats=%+v", len(docs), stats)
	}
}

func TestLoaderManifestDates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL_10K_2023.txt", "The Company continues to operate in competitive markets.")
	writeFile(t, dir, "filings.csv",
		"filename,ticker,filing_date\nAAPL_10K_2023.txt,AAPL,2023-10-27\n")

	loader := NewLoader(dir, 1<<20, zap.NewNop())
	docs, _, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Load() returned %d documents, want 1", len(docs))
	}
	want := time.Date(2023, time.October, 27, 0, 0, 0, 0, time.UTC)
	if !docs[0].FilingDate.Equal(want) {
		t.Errorf("FilingDate = %v, want manifest date %v", docs[0].FilingDate, want)
	}
}

func TestLoaderBadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL_10K_2023.txt", "body text")
	writeFile(t, dir, "filings.csv", "filename,ticker,filing_date\nAAPL_10K_2023.txt,AAPL,27/10/2023\n")

	loader := NewLoader(dir, 1<<20, zap.NewNop())
	if _, _, err := loader.Load(context.Background()); err == nil {
		t.Error("Load() accepted a manifest with a malformed date")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
