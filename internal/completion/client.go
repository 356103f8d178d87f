// Package completion talks to an OpenAI-compatible chat completion endpoint.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/metrics"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 90 * time.Second

// Config configures the upstream endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Extra   []option.RequestOption
}

// Options are the per-call generation parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Result is a finished completion.
type Result struct {
	Text             string
	TokensUsed       int
	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration
	Model            string
	// Estimated is set when token counts were approximated from text length.
	Estimated bool
}

// Client wraps the OpenAI SDK for one upstream deployment.
type Client struct {
	sdk     openai.Client
	model   string
	timeout time.Duration
}

// New creates a completion Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("completion: api key required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries belong to the caller; a retried stream could duplicate output.
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	opts = append(opts, cfg.Extra...)

	return &Client{
		sdk:     openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (c *Client) params(prompt string, opts Options) openai.ChatCompletionNewParams {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	p := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: param.NewOpt(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		p.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		p.TopP = param.NewOpt(opts.TopP)
	}
	return p
}

// Complete performs a single non-streaming completion.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	params := c.params(prompt, opts)
	slog.Debug("completion: sending request", "model", params.Model, "prompt_length", len([]rune(prompt)))

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		ce := classify(ctx, err, c.timeout)
		logFailure("complete", ce)
		return nil, ce
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Code: CodeAPIError, Message: "empty completion response"}
	}

	res := &Result{
		Text:             resp.Choices[0].Message.Content,
		TokensUsed:       int(resp.Usage.TotalTokens),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		ProcessingTime:   time.Since(start),
		Model:            resp.Model,
	}
	if res.TokensUsed == 0 {
		estimate(res, prompt)
	}
	slog.Debug("completion: request finished",
		"tokens", res.TokensUsed, "duration_ms", res.ProcessingTime.Milliseconds())
	return res, nil
}

func estimate(res *Result, prompt string) {
	res.PromptTokens = estimateTokens(prompt)
	res.CompletionTokens = estimateTokens(res.Text)
	res.TokensUsed = res.PromptTokens + res.CompletionTokens
	res.Estimated = true
	metrics.AITokensEstimatedTotal.Inc()
}

func logFailure(op string, ce *Error) {
	attrs := []any{"op", op, "code", ce.Code, "status", ce.Status, "error", ce.Err}
	if ce.Code == CodeUnauthorized {
		slog.Error("completion: upstream rejected credentials", attrs...)
		return
	}
	slog.Warn("completion: upstream call failed", attrs...)
}
