// Package llm wraps the upstream language model behind a small client
// interface with per-call timeouts and a shared rate limiter. Callers get
// exactly one attempt per request; degraded-path decisions (fallback intents,
// generic failure replies) belong to the callers, not this layer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"
)

// ErrUnavailable reports that the model service could not produce a response
// in time. It covers transport errors, timeouts and limiter saturation alike.
var ErrUnavailable = errors.New("language model unavailable")

// Message is one chat turn sent to the model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Request describes a single model call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONOutput  bool // constrain the response to a JSON object
	Timeout     time.Duration
}

// Client is the narrow contract the chat subsystem has with the model service.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds the settings for the langchaingo-backed client.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestsPerSec float64
	Burst          int
}

// LangchainClient implements Client using an OpenAI-compatible chat
// completions endpoint via langchaingo.
type LangchainClient struct {
	model   llms.Model
	name    string
	limiter *rate.Limiter
}

// NewLangchainClient builds the client and verifies the configuration.
func NewLangchainClient(cfg Config) (*LangchainClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	return &LangchainClient{
		model:   model,
		name:    cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Complete performs one model call. The limiter wait shares the request
// deadline, so a saturated limiter surfaces as ErrUnavailable instead of an
// unbounded queue of pending calls.
func (c *LangchainClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		var role schema.ChatMessageType
		switch m.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		default:
			role = schema.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONOutput {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		log.Error().Err(err).Str("model", c.name).Dur("elapsed", time.Since(start)).Msg("Model call failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	log.Debug().Str("model", c.name).Dur("elapsed", time.Since(start)).Msg("Model call completed")
	return resp.Choices[0].Content, nil
}
