// Package chat drives the conversation: it assembles the generation
// request, calls the model, extracts artifacts from the response, and
// moves the turn state machine from pending placeholder to final turn
// with a persistence write-back.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// ErrGenerationFailed indicates the model call failed after retries.
var ErrGenerationFailed = errors.New("generation failed")

// fallbackResponseText is used when the model produces an empty
// response, so a final turn never carries empty text.
const fallbackResponseText = "I couldn't generate a response. Please try rephrasing your request."

// Generator produces one model response for an ordered message list.
// No streaming: the response is a single text blob.
type Generator interface {
	Generate(ctx context.Context, msgs []*ai.Message) (string, error)
}

// GeneratorConfig contains all required parameters for the genkit
// generator.
type GeneratorConfig struct {
	Genkit    *genkit.Genkit
	Logger    *slog.Logger
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"

	Temperature float64
	MaxTokens   int

	RetryConfig RetryConfig   // zero value uses defaults
	RateLimiter *rate.Limiter // nil uses the default limiter
}

func (cfg GeneratorConfig) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// GenkitGenerator is the production Generator. Configuration is
// captured immutably at construction for thread-safe concurrent use.
type GenkitGenerator struct {
	g           *genkit.Genkit
	logger      *slog.Logger
	modelName   string
	temperature float64
	maxTokens   int
	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// NewGenerator creates a generator with required configuration.
func NewGenerator(cfg GeneratorConfig) (*GenkitGenerator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	// Default: 2 requests/sec sustained, burst of 5.
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(2, 5)
	}

	return &GenkitGenerator{
		g:           cfg.Genkit,
		logger:      cfg.Logger,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retryConfig: retryConfig,
		rateLimiter: rl,
	}, nil
}

// Generate runs one model call with rate limiting and retry. An empty
// model response is replaced by a fixed fallback text.
func (g *GenkitGenerator) Generate(ctx context.Context, msgs []*ai.Message) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithMessages(msgs...),
		ai.WithModelName(g.modelName),
	}
	cfg := &ai.GenerationCommonConfig{}
	if g.temperature > 0 {
		cfg.Temperature = g.temperature
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}
	if g.temperature > 0 || g.maxTokens > 0 {
		opts = append(opts, ai.WithConfig(cfg))
	}

	resp, err := g.generateWithRetry(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		g.logger.Warn("model returned empty response")
		text = fallbackResponseText
	}
	return text, nil
}
