package encoder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Gemini encodes passages through the hosted embedding API, retrying
// transient failures.
type Gemini struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	log        *zap.Logger
	modelName  string
	dimension  int
	maxRetries int
	retryDelay time.Duration
}

// GeminiConfig for the embedding client.
type GeminiConfig struct {
	APIKey     string
	Model      string // Default: "text-embedding-004"
	Dimension  int    // Default: 768, the size text-embedding-004 returns
	MaxRetries int
	RetryDelay time.Duration
}

// NewGemini creates the embedding client.
func NewGemini(cfg GeminiConfig, log *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	log.Info("Gemini encoder initialized",
		zap.String("model", cfg.Model),
		zap.Int("dimension", cfg.Dimension),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Gemini{
		client:     client,
		model:      client.EmbeddingModel(cfg.Model),
		log:        log,
		modelName:  cfg.Model,
		dimension:  cfg.Dimension,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Dimension() int {
	return g.dimension
}

func (g *Gemini) Name() string {
	return "gemini/" + g.modelName
}

// Encode embeds a single passage. API errors and empty responses are retried;
// a vector of the wrong size is a configuration problem and fails at once.
func (g *Gemini) Encode(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			g.log.Warn("Retrying Gemini embedding request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", g.maxRetries))
			time.Sleep(g.retryDelay)
		}

		res, err := g.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			g.log.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		if res.Embedding == nil || len(res.Embedding.Values) == 0 {
			lastErr = fmt.Errorf("empty embedding from gemini")
			g.log.Error("Empty embedding from Gemini", zap.Int("attempt", attempt+1))
			continue
		}

		if len(res.Embedding.Values) != g.dimension {
			return nil, fmt.Errorf("embedding size %d does not match configured dimension %d",
				len(res.Embedding.Values), g.dimension)
		}

		vec := make([]float64, len(res.Embedding.Values))
		for i, v := range res.Embedding.Values {
			vec[i] = float64(v)
		}
		return vec, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
}
