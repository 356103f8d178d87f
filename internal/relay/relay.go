// Package relay writes a completion stream to an HTTP client as server-sent events.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrClientGone is returned once the downstream connection has ended.
	ErrClientGone = errors.New("relay: client disconnected")
	// ErrClosed is returned by Chunk after a terminal frame was written.
	ErrClosed = errors.New("relay: stream already terminated")
)

// closedMessage is sent when the stream is closed without an explicit outcome.
const closedMessage = "服务器错误，请稍后再试"

type chunkFrame struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done"`
}

type doneFrame struct {
	Done           bool  `json:"done"`
	TokensUsed     int   `json:"tokensUsed"`
	ProcessingTime int64 `json:"processingTime"`
}

type errorFrame struct {
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Relay emits chunk frames followed by exactly one terminal frame.
type Relay struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	ctx context.Context

	mu         sync.Mutex
	terminated bool
	gone       bool
}

// New prepares w for streaming and sends the response headers.
func New(w http.ResponseWriter, r *http.Request) (*Relay, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// The server write timeout would otherwise cut long generations short.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return nil, fmt.Errorf("clearing write deadline: %w", err)
	}

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("response does not support streaming: %w", err)
	}
	return &Relay{w: w, rc: rc, ctx: r.Context()}, nil
}

// Chunk writes one content frame and flushes it.
func (s *Relay) Chunk(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrClosed
	}
	return s.write(chunkFrame{Chunk: text})
}

// Done writes the success terminal frame. Later terminal calls are no-ops.
func (s *Relay) Done(tokensUsed int, processingTimeMs int64) error {
	return s.terminate(doneFrame{Done: true, TokensUsed: tokensUsed, ProcessingTime: processingTimeMs})
}

// Fail writes the error terminal frame. Later terminal calls are no-ops.
func (s *Relay) Fail(message string) error {
	return s.terminate(errorFrame{Done: true, Error: message})
}

// Close writes a generic error terminal if the stream has none yet.
func (s *Relay) Close() error {
	return s.Fail(closedMessage)
}

// Terminated reports whether a terminal frame has been written or attempted.
func (s *Relay) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

func (s *Relay) terminate(frame any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return nil
	}
	s.terminated = true
	return s.write(frame)
}

// write must be called with mu held.
func (s *Relay) write(frame any) error {
	if s.gone || s.ctx.Err() != nil {
		s.gone = true
		return ErrClientGone
	}

	var buf bytes.Buffer
	buf.WriteString("data: ")
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(frame); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	// Encode already wrote one newline.
	buf.WriteByte('\n')

	if _, err := s.w.Write(buf.Bytes()); err != nil {
		s.gone = true
		return ErrClientGone
	}
	if err := s.rc.Flush(); err != nil {
		s.gone = true
		return ErrClientGone
	}
	return nil
}
