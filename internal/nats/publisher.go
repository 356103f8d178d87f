package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// HeaderUserID carries the user id so consumers can filter without decoding.
const HeaderUserID = "Notebook-User-Id"

// Publisher emits usage and quota events. It satisfies usage.EventPublisher
// and assist.QuotaEvents.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsage publishes to notebook.ai.usage.{action}. The event id doubles
// as the JetStream message id, so a retried publish is stored once.
func (p *Publisher) PublishUsage(ctx context.Context, event UsageEvent) error {
	subject := SubjectUsagePrefix + "." + event.Action
	return p.publish(ctx, subject, event.UserID, event, jetstream.WithMsgID(event.ID.String()))
}

func (p *Publisher) PublishQuotaRejected(ctx context.Context, event QuotaRejectedEvent) error {
	return p.publish(ctx, SubjectQuotaRejected, event.UserID, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, userID int64, event any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(HeaderUserID, strconv.FormatInt(userID, 10))

	if _, err := p.js.PublishMsg(ctx, msg, opts...); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}
