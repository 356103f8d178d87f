package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkFrame(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model",`+
		`"choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

const usageFrame = `{"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model",` +
	`"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`

func writeFrame(t *testing.T, w http.ResponseWriter, data string) {
	t.Helper()
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.(http.Flusher).Flush()
}

func streamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}

func TestStream_DeliversChunksInOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		streamHeaders(w)
		writeFrame(t, w, chunkFrame("Hel"))
		writeFrame(t, w, chunkFrame("lo"))
		writeFrame(t, w, `{not json`)
		writeFrame(t, w, chunkFrame(" world"))
		writeFrame(t, w, usageFrame)
		writeFrame(t, w, "[DONE]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	var chunks []string
	res, err := c.Stream(context.Background(), "prompt", Options{MaxTokens: 100}, func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", " world"}, chunks)
	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, strings.Join(chunks, ""), res.Text)
	assert.Equal(t, 15, res.TokensUsed)
	assert.Equal(t, 10, res.PromptTokens)
	assert.False(t, res.Estimated)

	assert.Equal(t, true, got["stream"])
	opts, ok := got["stream_options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, opts["include_usage"])
}

func TestStream_MissingUsageIsEstimated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(w)
		writeFrame(t, w, chunkFrame("你好"))
		writeFrame(t, w, chunkFrame("世界"))
		writeFrame(t, w, "[DONE]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	res, err := c.Stream(context.Background(), "abcd", Options{}, func(string) error { return nil })
	require.NoError(t, err)
	assert.True(t, res.Estimated)
	assert.Equal(t, 4, res.TokensUsed)
}

func TestStream_EndsWithoutDoneSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(w)
		writeFrame(t, w, chunkFrame("only"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	res, err := c.Stream(context.Background(), "p", Options{}, func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "only", res.Text)
}

func TestStream_ConnectionDropAfterChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(w)
		writeFrame(t, w, chunkFrame("one "))
		writeFrame(t, w, chunkFrame("two "))
		writeFrame(t, w, chunkFrame("three"))
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	var chunks []string
	res, err := c.Stream(context.Background(), "p", Options{}, func(s string) error {
		chunks = append(chunks, s)
		return nil
	})

	assert.Nil(t, res)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeStreamError, ce.Code)
	assert.Len(t, chunks, 3)
}

func TestStream_OnChunkErrorStopsReading(t *testing.T) {
	errGone := errors.New("client gone")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(w)
		for i := 0; i < 50; i++ {
			select {
			case <-r.Context().Done():
				return
			default:
			}
			writeFrame(t, w, chunkFrame("x"))
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 5*time.Second)
	calls := 0
	_, err := c.Stream(context.Background(), "p", Options{}, func(string) error {
		calls++
		if calls == 2 {
			return errGone
		}
		return nil
	})
	assert.ErrorIs(t, err, errGone)
	assert.Equal(t, 2, calls)
}

func TestStream_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "slow down"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	_, err := c.Stream(context.Background(), "p", Options{}, func(string) error {
		t.Fatal("no chunks expected")
		return nil
	})

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeRateLimitExceeded, ce.Code)
}
