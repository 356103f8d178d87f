package completion

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/metrics"
)

const doneSentinel = "[DONE]"

// Stream performs a streaming completion, calling onChunk for every content delta
// in arrival order. Frames that fail to decode are skipped. If onChunk returns an
// error the upstream read is cancelled and that error is returned.
func (c *Client) Stream(ctx context.Context, prompt string, opts Options, onChunk func(string) error) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	params := c.params(prompt, opts)
	params.StreamOptions.IncludeUsage = param.NewOpt(true)

	var raw *http.Response
	err := c.sdk.Post(ctx, "chat/completions", params, &raw, option.WithJSONSet("stream", true))
	if err != nil {
		ce := classify(ctx, err, c.timeout)
		logFailure("stream", ce)
		return nil, ce
	}

	dec := ssestream.NewDecoder(raw)
	if dec == nil {
		return nil, &Error{Code: CodeStreamError, Message: "empty stream response"}
	}
	defer dec.Close()

	var (
		text  strings.Builder
		usage openai.CompletionUsage
		model string
	)
	for dec.Next() {
		data := strings.TrimSpace(string(dec.Event().Data))
		if data == "" {
			continue
		}
		if data == doneSentinel {
			break
		}

		var chunk openai.ChatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			metrics.StreamFramesSkippedTotal.Inc()
			slog.Warn("completion: skipping malformed stream frame", "error", err)
			continue
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage.TotalTokens > 0 {
			usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		text.WriteString(delta)
		if err := onChunk(delta); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := dec.Err(); err != nil {
		ce := classify(ctx, err, c.timeout)
		if ce.Code == CodeNetworkError {
			ce = &Error{Code: CodeStreamError, Message: "流式响应中断", Err: err}
		}
		logFailure("stream", ce)
		return nil, ce
	}
	if err := ctx.Err(); err != nil && errors.Is(err, context.DeadlineExceeded) {
		ce := classify(ctx, err, c.timeout)
		logFailure("stream", ce)
		return nil, ce
	}

	res := &Result{
		Text:             text.String(),
		TokensUsed:       int(usage.TotalTokens),
		PromptTokens:     int(usage.PromptTokens),
		CompletionTokens: int(usage.CompletionTokens),
		ProcessingTime:   time.Since(start),
		Model:            model,
	}
	if res.TokensUsed == 0 {
		estimate(res, prompt)
	}
	slog.Debug("completion: stream finished",
		"tokens", res.TokensUsed, "estimated", res.Estimated, "duration_ms", res.ProcessingTime.Milliseconds())
	return res, nil
}
