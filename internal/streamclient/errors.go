package streamclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

var (
	// ErrIncomplete means the stream ended without a terminal frame.
	ErrIncomplete = errors.New("streamclient: stream ended without terminal frame")
	// ErrTimeout means one attempt exceeded the configured timeout.
	ErrTimeout = errors.New("streamclient: request timed out")
)

// StatusError is a non-streaming reply from the server, e.g. a rejected request.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("streamclient: HTTP %d: %s", e.Status, e.Message)
}

// ServerError is an error terminal frame sent after the stream opened.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "streamclient: " + e.Message
}

// transient reports whether err is a network or timeout failure worth retrying.
func transient(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrIncomplete) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
