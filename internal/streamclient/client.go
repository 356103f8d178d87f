// Package streamclient consumes the AI streaming endpoint from Go.
package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout    = 90 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryStep  = time.Second
)

// RefreshFunc obtains a new bearer token after the current one was rejected.
type RefreshFunc func(ctx context.Context) (string, error)

type Config struct {
	BaseURL    string // e.g. http://localhost:3000/api/v1
	Token      string
	Refresh    RefreshFunc // optional
	Timeout    time.Duration
	MaxRetries int
	RetryStep  time.Duration
	HTTPClient *http.Client
}

// Options mirrors the request options accepted by the server.
type Options struct {
	Length      string   `json:"length,omitempty"`
	Style       string   `json:"style,omitempty"`
	Language    string   `json:"language,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	SaveHistory *bool    `json:"saveHistory,omitempty"`
	NoteID      *int64   `json:"noteId,omitempty"`
}

// Stats is reported once a stream completes.
type Stats struct {
	TokensUsed     int
	ProcessingTime time.Duration
}

// Result is the assembled output of a completed stream.
type Result struct {
	Text  string
	Stats Stats
}

type Client struct {
	baseURL    string
	http       *http.Client
	refresh    RefreshFunc
	timeout    time.Duration
	maxRetries int
	retryStep  time.Duration

	mu    sync.RWMutex
	token string
	group singleflight.Group
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		refresh:    cfg.Refresh,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryStep:  cfg.RetryStep,
		token:      cfg.Token,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryStep <= 0 {
		c.retryStep = DefaultRetryStep
	}
	return c
}

type frame struct {
	Chunk          string `json:"chunk"`
	Done           bool   `json:"done"`
	Error          string `json:"error"`
	TokensUsed     int    `json:"tokensUsed"`
	ProcessingTime int64  `json:"processingTime"`
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Stream runs action over content, calling onChunk for every delta in order.
//
// Transient failures are retried with linearly growing delays, but only
// while nothing has been delivered to onChunk. A stream is never resumed.
func (c *Client) Stream(ctx context.Context, action, content string, opts Options, onChunk func(string)) (*Result, error) {
	body, err := json.Marshal(map[string]any{
		"content": content,
		"options": struct {
			Options
			StreamEnabled bool `json:"streamEnabled"`
		}{opts, true},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	url := c.baseURL + "/ai/" + action

	var (
		result    *Result
		delivered bool
		attempt   int
	)
	deliver := func(s string) {
		delivered = true
		if onChunk != nil {
			onChunk(s)
		}
	}

	op := func() error {
		attempt++
		res, err := c.attempt(ctx, url, body, deliver)
		if err == nil {
			result = res
			return nil
		}
		if delivered || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("streamclient: retrying", "action", action, "attempt", attempt, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: c.retryStep}, uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return result, nil
}

// attempt performs one request, refreshing the token once on 401.
func (c *Client) attempt(ctx context.Context, url string, body []byte, onChunk func(string)) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sent := c.currentToken()
	resp, err := c.post(ctx, url, body, sent)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && c.refresh != nil {
		resp.Body.Close()
		token, rerr := c.refreshToken(ctx, sent)
		if rerr != nil {
			return nil, &StatusError{Status: http.StatusUnauthorized, Message: rerr.Error()}
		}
		resp, err = c.post(ctx, url, body, token)
	}
	if err != nil {
		return nil, c.wrap(ctx, err)
	}

	res, err := c.read(resp, onChunk)
	if err != nil {
		return nil, c.wrap(ctx, err)
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func (c *Client) read(resp *http.Response, onChunk func(string)) (*Result, error) {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: env.Message}
	}

	dec := ssestream.NewDecoder(resp)
	defer dec.Close()

	var text strings.Builder
	for dec.Next() {
		var f frame
		if err := json.Unmarshal(dec.Event().Data, &f); err != nil {
			slog.Debug("streamclient: ignoring malformed frame", "error", err)
			continue
		}
		if f.Done {
			if f.Error != "" {
				return nil, &ServerError{Message: f.Error}
			}
			return &Result{
				Text: text.String(),
				Stats: Stats{
					TokensUsed:     f.TokensUsed,
					ProcessingTime: time.Duration(f.ProcessingTime) * time.Millisecond,
				},
			}, nil
		}
		if f.Chunk == "" {
			continue
		}
		text.WriteString(f.Chunk)
		onChunk(f.Chunk)
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return nil, ErrIncomplete
}

// wrap turns an attempt-level deadline into ErrTimeout.
func (c *Client) wrap(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// refreshToken collapses concurrent refreshes into one call. A caller whose
// rejected token was already replaced gets the new one without refreshing again.
func (c *Client) refreshToken(ctx context.Context, rejected string) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		if current := c.currentToken(); current != rejected {
			return current, nil
		}
		token, err := c.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() {
	b.n = 0
}
