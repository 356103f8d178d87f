// Package nats publishes AI usage and quota events to JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/config"
)

const (
	eventRetention   = 7 * 24 * time.Hour
	duplicatesWindow = 2 * time.Minute
)

type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects and makes sure NOTEBOOK_AI_EVENTS exists with the
// current retention settings.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("notebook-ai"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats: disconnected, usage events will be dropped", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats: reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening jetstream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamAIEvents,
		Subjects:   []string{SubjectAIEvents},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     eventRetention,
		Duplicates: duplicatesWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring stream %s: %w", StreamAIEvents, err)
	}

	slog.Info("connected to NATS", "url", cfg.URL, "stream", stream.CachedInfo().Config.Name)
	return &Client{conn: nc, js: js}, nil
}

// Publisher returns a Publisher bound to this connection.
func (c *Client) Publisher() *Publisher {
	return NewPublisher(c.js)
}

// Healthy reports whether the connection is currently up.
func (c *Client) Healthy() bool {
	return c.conn.Status() == nats.CONNECTED
}

// Close flushes pending publishes before closing.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("nats: drain failed", "error", err)
	}
}
