package streamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	fmt.Fprintf(w, "data: %s\n\n", b)
	w.(http.Flusher).Flush()
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}

func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	conn, _, err := w.(http.Hijacker).Hijack()
	require.NoError(t, err)
	conn.Close()
}

func newTestClient(url string) *Client {
	return New(Config{BaseURL: url, Token: "token", RetryStep: time.Millisecond, Timeout: 2 * time.Second})
}

func TestStream_DeliversChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ai/polish", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "原文", body["content"])
		assert.Equal(t, true, body["options"].(map[string]any)["streamEnabled"])

		sseHeaders(w)
		writeFrame(t, w, map[string]any{"chunk": "润色", "done": false})
		fmt.Fprint(w, "data: {not json\n\n")
		writeFrame(t, w, map[string]any{"chunk": "结果", "done": false})
		writeFrame(t, w, map[string]any{"done": true, "tokensUsed": 30, "processingTime": 1200})
	}))
	defer srv.Close()

	var got []string
	res, err := newTestClient(srv.URL+"/api/v1").Stream(context.Background(), "polish", "原文", Options{}, func(s string) {
		got = append(got, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"润色", "结果"}, got)
	assert.Equal(t, "润色结果", res.Text)
	assert.Equal(t, 30, res.Stats.TokensUsed)
	assert.Equal(t, 1200*time.Millisecond, res.Stats.ProcessingTime)
}

func TestStream_ErrorFrameIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		sseHeaders(w)
		writeFrame(t, w, map[string]any{"done": true, "error": "请求超时（90000ms），请稍后重试"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Stream(context.Background(), "polish", "x", Options{}, nil)
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "请求超时（90000ms），请稍后重试", se.Message)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestStream_RetriesBeforeFirstChunk(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			dropConnection(t, w)
			return
		}
		sseHeaders(w)
		writeFrame(t, w, map[string]any{"chunk": "ok", "done": false})
		writeFrame(t, w, map[string]any{"done": true, "tokensUsed": 1})
	}))
	defer srv.Close()

	var got []string
	res, err := newTestClient(srv.URL).Stream(context.Background(), "continue", "x", Options{}, func(s string) {
		got = append(got, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, []string{"ok"}, got)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestStream_NoRetryAfterPartialOutput(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		sseHeaders(w)
		writeFrame(t, w, map[string]any{"chunk": "partial", "done": false})
		dropConnection(t, w)
	}))
	defer srv.Close()

	var got []string
	_, err := newTestClient(srv.URL).Stream(context.Background(), "continue", "x", Options{}, func(s string) {
		got = append(got, s)
	})
	require.Error(t, err)
	assert.Equal(t, []string{"partial"}, got)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestStream_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		dropConnection(t, w)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Stream(context.Background(), "continue", "x", Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1+DefaultMaxRetries), attempts.Load())
}

func TestStream_RejectionIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"success":false,"message":"已达到每小时请求上限（10 次）"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Stream(context.Background(), "continue", "x", Options{}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.Contains(t, se.Message, "每小时请求上限")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestStream_TimeoutIsRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, MaxRetries: 1, RetryStep: time.Millisecond})
	_, err := c.Stream(context.Background(), "continue", "x", Options{}, nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestStream_ConcurrentUnauthorizedRefreshesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"认证令牌已过期"}`)
			return
		}
		sseHeaders(w)
		writeFrame(t, w, map[string]any{"chunk": "ok", "done": false})
		writeFrame(t, w, map[string]any{"done": true})
	}))
	defer srv.Close()

	var refreshes atomic.Int32
	c := New(Config{
		BaseURL: srv.URL,
		Token:   "stale",
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			time.Sleep(50 * time.Millisecond)
			return "fresh", nil
		},
	})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Stream(context.Background(), "polish", "x", Options{}, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestStream_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL: srv.URL,
		Refresh: func(context.Context) (string, error) { return "", errors.New("refresh token revoked") },
	})
	_, err := c.Stream(context.Background(), "polish", "x", Options{}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: time.Second}
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 3*time.Second, b.NextBackOff())
	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}
