package encoder

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Supported encoder backends.
const (
	BackendGemini  = "gemini"
	BackendHTTP    = "http"
	BackendHashing = "hashing"
)

// Encoder maps passage text to a fixed-width dense vector for the advanced
// classifier. Implementations must return vectors of exactly Dimension()
// values.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
	Dimension() int
	Name() string
}

// Options selects and configures an encoder backend.
type Options struct {
	Backend   string
	Model     string
	Dimension int
	URL       string
	APIKey    string
}

// New builds the configured encoder. The hashing backend is the offline
// default; gemini and http reach external services.
func New(opts Options, log *zap.Logger) (Encoder, error) {
	switch opts.Backend {
	case BackendHashing, "":
		return NewHashing(opts.Dimension), nil
	case BackendHTTP:
		if opts.URL == "" {
			return nil, fmt.Errorf("encoder backend %q requires a url", BackendHTTP)
		}
		return NewLocal(opts.URL, opts.Dimension), nil
	case BackendGemini:
		return NewGemini(GeminiConfig{
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			Dimension: opts.Dimension,
		}, log)
	default:
		return nil, fmt.Errorf("unknown encoder backend %q", opts.Backend)
	}
}

// EncodeAll encodes texts in order, failing fast on the first error: a
// missing vector would poison training, so partial batches are not tolerated.
func EncodeAll(ctx context.Context, enc Encoder, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vec, err := enc.Encode(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("encode text %d of %d: %w", i+1, len(texts), err)
		}
		out[i] = vec
	}
	return out, nil
}
