package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultMaxRetries  = 3
	defaultTopP        = 0.9
	defaultMaxTokens   = 600
	jsonMIMEType       = "application/json"
	initialRetryDelay  = 500 * time.Millisecond
	maxRetryElapsed    = 15 * time.Second
)

// Options tune the generation requests.
type Options struct {
	Model       string
	MaxRetries  int
	Temperature float32
	TopP        float32
	MaxTokens   int32
}

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client. Every request runs in JSON mode
// with the recruiting system instruction.
type Generator struct {
	models     contentModels
	modelName  string
	maxRetries int
	config     genai.GenerateContentConfig
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, logger), nil
}

func newGenerator(models contentModels, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.TopP <= 0 {
		opts.TopP = defaultTopP
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	return &Generator{
		models:     models,
		modelName:  model,
		maxRetries: opts.MaxRetries,
		config: genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr(opts.Temperature),
			TopP:              genai.Ptr(opts.TopP),
			MaxOutputTokens:   opts.MaxTokens,
			ResponseMIMEType:  jsonMIMEType,
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initialRetryDelay
			b.MaxElapsedTime = maxRetryElapsed
			return b
		},
		logger: logger,
	}
}

// GenerateContent sends the prompt to Gemini and returns the textual
// response. Rate limits and server errors are retried with exponential
// backoff; anything else fails at once.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := g.config
	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.maxRetries-1)), ctx)

	attempt := 0
	output, err := backoff.RetryNotifyWithData(func() (string, error) {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), &config)
		if err != nil {
			if !retryable(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return responseText(resp)
	}, policy, func(err error, wait time.Duration) {
		g.logger.Debug("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return true
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", backoff.Permanent(errors.New("gemini api returned no response"))
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", backoff.Permanent(errors.New("gemini api returned empty response"))
	}

	return output, nil
}
