// Package usage records AI invocations, their history snapshots and aggregate stats.
package usage

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/metrics"
	inats "github.com/JuJa1021101/Vue3-notebook-AI/internal/nats"
)

// Store is the persistence the recorder needs.
type Store interface {
	InsertUsage(ctx context.Context, e Entry, cost decimal.Decimal) error
	InsertHistory(ctx context.Context, h HistoryEntry, expiresAt time.Time) error
	Aggregate(ctx context.Context, userID int64, p Period) (*Aggregate, error)
}

// EventPublisher receives a copy of every recorded entry.
type EventPublisher interface {
	PublishUsage(ctx context.Context, event inats.UsageEvent) error
}

// Recorder writes usage logs and history. Failures are logged, never returned.
type Recorder struct {
	store     Store
	events    EventPublisher
	unitPrice decimal.Decimal
	loc       *time.Location
	now       func() time.Time
}

// NewRecorder creates a Recorder. events may be nil.
func NewRecorder(store Store, events EventPublisher, unitPrice decimal.Decimal, loc *time.Location) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	return &Recorder{store: store, events: events, unitPrice: unitPrice, loc: loc, now: time.Now}
}

// Record appends exactly one usage row for e.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	cost := Cost(e.TokensUsed, r.unitPrice)

	if err := r.store.InsertUsage(ctx, e, cost); err != nil {
		slog.Error("usage: failed to record invocation",
			"user_id", e.UserID, "action", e.Action, "success", e.Success, "error", err)
	}

	status := "success"
	if !e.Success {
		status = "error"
	}
	metrics.AIRequestsTotal.WithLabelValues(e.Action, e.Mode, status).Inc()
	metrics.AIRequestDuration.WithLabelValues(e.Action, e.Mode).Observe(e.ProcessingTime.Seconds())
	if e.TokensUsed > 0 {
		metrics.AITokensTotal.WithLabelValues(e.Action).Add(float64(e.TokensUsed))
		metrics.AICostTotal.Add(cost.InexactFloat64())
	}

	if r.events == nil {
		return
	}
	event := inats.UsageEvent{
		ID:               uuid.New(),
		UserID:           e.UserID,
		NoteID:           e.NoteID,
		Action:           e.Action,
		Mode:             e.Mode,
		TokensUsed:       e.TokensUsed,
		TokensEstimated:  e.Estimated,
		Cost:             cost.String(),
		Model:            e.Model,
		Success:          e.Success,
		ErrorMessage:     e.ErrorMessage,
		ProcessingTimeMs: e.ProcessingTime.Milliseconds(),
		Timestamp:        r.now(),
	}
	if err := r.events.PublishUsage(ctx, event); err != nil {
		slog.Warn("usage: failed to publish event", "user_id", e.UserID, "error", err)
	}
}

// SaveHistory stores h with a 30 day logical expiry.
func (r *Recorder) SaveHistory(ctx context.Context, h HistoryEntry) {
	expiresAt := r.now().Add(HistoryTTL)
	if err := r.store.InsertHistory(ctx, h, expiresAt); err != nil {
		slog.Error("usage: failed to save history", "user_id", h.UserID, "action", h.Action, "error", err)
	}
}

// Stats returns today's and this month's usage for userID. Query failures
// yield zeroed aggregates.
func (r *Recorder) Stats(ctx context.Context, userID int64) Summary {
	now := r.now().In(r.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)

	var s Summary
	s.Today.TotalCost = decimal.Zero
	s.Month.TotalCost = decimal.Zero

	if day, err := r.store.Aggregate(ctx, userID, Period{From: dayStart, To: dayStart.AddDate(0, 0, 1)}); err != nil {
		slog.Warn("usage: failed to load daily stats", "user_id", userID, "error", err)
	} else {
		s.Today = DayStats{
			TotalRequests: day.Requests,
			TotalTokens:   day.Tokens,
			TotalCost:     day.Cost,
			AvgTime:       math.Round(day.AvgTimeMs),
		}
	}

	if month, err := r.store.Aggregate(ctx, userID, Period{From: monthStart, To: monthStart.AddDate(0, 1, 0)}); err != nil {
		slog.Warn("usage: failed to load monthly stats", "user_id", userID, "error", err)
	} else {
		s.Month = MonthStats{
			TotalRequests: month.Requests,
			TotalTokens:   month.Tokens,
			TotalCost:     month.Cost,
		}
	}
	return s
}
