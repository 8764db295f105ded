package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration. Values left out of the YAML
// file fall back to research defaults; a handful of operational settings can
// be overridden through FINREPORTS_* environment variables.
type Config struct {
	Data struct {
		FilingsDir       string `yaml:"filings_dir"`
		AnnotationsFile  string `yaml:"annotations_file"`
		MaxDocumentBytes int    `yaml:"max_document_bytes"`
	} `yaml:"data"`

	Market struct {
		PricesDir              string  `yaml:"prices_dir"`
		WindowDays             int     `yaml:"window_days"`
		AdverseReturnThreshold float64 `yaml:"adverse_return_threshold"`
	} `yaml:"market"`

	Segmenter struct {
		MaxPassageTokens int `yaml:"max_passage_tokens"`
	} `yaml:"segmenter"`

	Features struct {
		HedgeLexiconPath   string `yaml:"hedge_lexicon_path"`
		VagueLexiconPath   string `yaml:"vague_lexicon_path"`
		ReadabilityFormula string `yaml:"readability_formula"` // gunning_fog | flesch_kincaid
	} `yaml:"features"`

	Labels struct {
		WeakCutoff float64 `yaml:"weak_cutoff"`
		Weights    struct {
			Hedge   float64 `yaml:"hedge"`
			Vague   float64 `yaml:"vague"`
			Modal   float64 `yaml:"modal"`
			Passive float64 `yaml:"passive"`
			Numeric float64 `yaml:"numeric"` // subtracted: precise figures reduce ambiguity
		} `yaml:"weights"`
	} `yaml:"labels"`

	Training struct {
		Seed                 int64   `yaml:"seed"`
		SplitRatio           float64 `yaml:"split_ratio"`
		ValidationRatio      float64 `yaml:"validation_ratio"`
		Regularization       float64 `yaml:"regularization"`
		LearningRate         float64 `yaml:"learning_rate"`
		Epochs               int     `yaml:"epochs"`
		BatchSize            int     `yaml:"batch_size"`
		Patience             int     `yaml:"patience"`
		MaxVocabulary        int     `yaml:"max_vocabulary"`
		IncludeDenseFeatures bool    `yaml:"include_dense_features"`
	} `yaml:"training"`

	Encoder struct {
		Backend   string `yaml:"backend"` // gemini | http | hashing
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
		URL       string `yaml:"url"`
	} `yaml:"encoder"`

	Evaluation struct {
		ComparisonMetric string `yaml:"comparison_metric"` // roc_auc | f1
		BootstrapRounds  int    `yaml:"bootstrap_rounds"`
		Aggregation      string `yaml:"aggregation"` // mean | max
		Association      string `yaml:"association"` // point_biserial | mean_diff
	} `yaml:"evaluation"`

	Pipeline struct {
		Workers int `yaml:"workers"`
	} `yaml:"pipeline"`

	Store struct {
		Driver        string `yaml:"driver"` // sqlite | postgres
		DSN           string `yaml:"dsn"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"store"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Notify struct {
		Enabled        bool  `yaml:"enabled"`
		TelegramChatID int64 `yaml:"telegram_chat_id"`
	} `yaml:"notify"`
}

// Load reads configuration from the given YAML file. An empty path yields the
// defaults; a named but unreadable file is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv("FINREPORTS_FILINGS_DIR"); dir != "" {
		c.Data.FilingsDir = dir
	}
	if dir := os.Getenv("FINREPORTS_PRICES_DIR"); dir != "" {
		c.Market.PricesDir = dir
	}
	if driver := os.Getenv("FINREPORTS_STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if dsn := os.Getenv("FINREPORTS_STORE_DSN"); dsn != "" {
		c.Store.DSN = dsn
	}
	if port := os.Getenv("FINREPORTS_SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if seed := os.Getenv("FINREPORTS_SEED"); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.Training.Seed = s
		}
	}
	if workers := os.Getenv("FINREPORTS_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			c.Pipeline.Workers = w
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Data.FilingsDir == "" {
		c.Data.FilingsDir = "data/raw"
	}
	if c.Data.MaxDocumentBytes == 0 {
		c.Data.MaxDocumentBytes = 10 << 20
	}
	if c.Market.PricesDir == "" {
		c.Market.PricesDir = "data/prices"
	}
	if c.Market.WindowDays == 0 {
		c.Market.WindowDays = 3
	}
	if c.Segmenter.MaxPassageTokens == 0 {
		c.Segmenter.MaxPassageTokens = 512
	}
	if c.Features.ReadabilityFormula == "" {
		c.Features.ReadabilityFormula = "gunning_fog"
	}
	if c.Labels.WeakCutoff == 0 {
		c.Labels.WeakCutoff = 0.10
	}
	if c.Labels.Weights.Hedge == 0 && c.Labels.Weights.Vague == 0 &&
		c.Labels.Weights.Modal == 0 && c.Labels.Weights.Passive == 0 &&
		c.Labels.Weights.Numeric == 0 {
		c.Labels.Weights.Hedge = 0.45
		c.Labels.Weights.Vague = 0.10
		c.Labels.Weights.Modal = 0.15
		c.Labels.Weights.Passive = 0.15
		c.Labels.Weights.Numeric = 0.15
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = 42
	}
	if c.Training.SplitRatio == 0 {
		c.Training.SplitRatio = 0.8
	}
	if c.Training.ValidationRatio == 0 {
		c.Training.ValidationRatio = 0.15
	}
	if c.Training.Regularization == 0 {
		c.Training.Regularization = 0.01
	}
	if c.Training.LearningRate == 0 {
		c.Training.LearningRate = 0.05
	}
	if c.Training.Epochs == 0 {
		c.Training.Epochs = 30
	}
	if c.Training.BatchSize == 0 {
		c.Training.BatchSize = 32
	}
	if c.Training.Patience == 0 {
		c.Training.Patience = 3
	}
	if c.Training.MaxVocabulary == 0 {
		c.Training.MaxVocabulary = 10000
	}
	if c.Encoder.Backend == "" {
		c.Encoder.Backend = "hashing"
	}
	if c.Encoder.Model == "" {
		c.Encoder.Model = "text-embedding-004"
	}
	if c.Encoder.Dimension == 0 {
		c.Encoder.Dimension = 256
	}
	if c.Evaluation.ComparisonMetric == "" {
		c.Evaluation.ComparisonMetric = "roc_auc"
	}
	if c.Evaluation.BootstrapRounds == 0 {
		c.Evaluation.BootstrapRounds = 1000
	}
	if c.Evaluation.Aggregation == "" {
		c.Evaluation.Aggregation = "mean"
	}
	if c.Evaluation.Association == "" {
		c.Evaluation.Association = "point_biserial"
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.DSN == "" {
		c.Store.DSN = "finreports.db"
	}
	if c.Store.MigrationsDir == "" {
		c.Store.MigrationsDir = "migrations"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8085"
	}
}

func (c *Config) validate() error {
	if c.Training.SplitRatio <= 0 || c.Training.SplitRatio >= 1 {
		return fmt.Errorf("training.split_ratio must lie in (0,1), got %v", c.Training.SplitRatio)
	}
	if c.Training.ValidationRatio < 0 || c.Training.ValidationRatio >= 1 {
		return fmt.Errorf("training.validation_ratio must lie in [0,1), got %v", c.Training.ValidationRatio)
	}
	if c.Market.WindowDays < 1 {
		return fmt.Errorf("market.window_days must be positive, got %d", c.Market.WindowDays)
	}
	if c.Segmenter.MaxPassageTokens < 1 {
		return fmt.Errorf("segmenter.max_passage_tokens must be positive, got %d", c.Segmenter.MaxPassageTokens)
	}
	switch c.Features.ReadabilityFormula {
	case "gunning_fog", "flesch_kincaid":
	default:
		return fmt.Errorf("unknown readability formula %q", c.Features.ReadabilityFormula)
	}
	switch c.Encoder.Backend {
	case "gemini", "http", "hashing":
	default:
		return fmt.Errorf("unknown encoder backend %q", c.Encoder.Backend)
	}
	switch c.Evaluation.Aggregation {
	case "mean", "max":
	default:
		return fmt.Errorf("unknown aggregation rule %q", c.Evaluation.Aggregation)
	}
	switch c.Evaluation.Association {
	case "point_biserial", "mean_diff":
	default:
		return fmt.Errorf("unknown association test %q", c.Evaluation.Association)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Dump serializes the effective configuration for run records.
func (c *Config) Dump() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(out)
}
