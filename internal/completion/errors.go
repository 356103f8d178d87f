package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

// Error codes reported by the client.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeAPIError          = "API_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeStreamError       = "STREAM_ERROR"
)

// Error is an upstream failure with a stable code.
type Error struct {
	Code    string
	Message string
	Status  int // upstream HTTP status, 0 when no response arrived
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the whole request may succeed.
func (e *Error) Transient() bool {
	switch e.Code {
	case CodeTimeout, CodeNetworkError, CodeStreamError:
		return true
	}
	return false
}

// classify maps a transport or API error to an *Error.
func classify(ctx context.Context, err error, timeout time.Duration) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		code := CodeAPIError
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			code = CodeUnauthorized
		case http.StatusTooManyRequests:
			code = CodeRateLimitExceeded
		case http.StatusBadRequest:
			code = CodeBadRequest
		}
		return &Error{Code: code, Message: msg, Status: apiErr.StatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{
			Code:    CodeTimeout,
			Message: fmt.Sprintf("请求超时（%dms），请稍后重试", timeout.Milliseconds()),
			Err:     err,
		}
	}
	return &Error{Code: CodeNetworkError, Message: "网络连接失败，请检查网络设置", Err: err}
}
