package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/metrics"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

// Store persists the per-day counters.
type Store interface {
	Consume(ctx context.Context, userID int64, slot Slot, limits tier.Limits) (*Record, bool, error)
	Get(ctx context.Context, userID int64, date string) (*Record, error)
}

// Service gates AI requests on the user's tier quota.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a new quota Service. Day and hour boundaries are taken in loc.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, now: time.Now}
}

// CheckAndConsume counts one request against limits.
// Returns nil if allowed, or an *ExceededError naming the exhausted window.
func (s *Service) CheckAndConsume(ctx context.Context, userID int64, limits tier.Limits) error {
	if limits.IsUnlimited() {
		return nil
	}

	slot := SlotOf(s.now(), s.loc)
	_, ok, err := s.store.Consume(ctx, userID, slot, limits)
	if err != nil {
		slog.Warn("quota: failed to consume, allowing request", "error", err, "user_id", userID)
		return nil // Fail open
	}
	if ok {
		return nil
	}

	exceeded := s.explain(ctx, userID, slot, limits)
	metrics.QuotaRejectionsTotal.WithLabelValues(string(exceeded.Window)).Inc()
	slog.Info("quota: request rejected", "user_id", userID, "window", exceeded.Window, "limit", exceeded.Limit)
	return exceeded
}

// explain works out which window rejected the request. The row is only read
// for the message; the decision was already made atomically.
func (s *Service) explain(ctx context.Context, userID int64, slot Slot, limits tier.Limits) *ExceededError {
	rec, err := s.store.Get(ctx, userID, slot.Date)
	if err != nil || rec == nil {
		return &ExceededError{Window: Daily, Limit: limits.Daily}
	}
	if rec.RequestHour == slot.Hour && limits.Hourly != tier.Unlimited && rec.HourlyCount >= limits.Hourly {
		return &ExceededError{Window: Hourly, Limit: limits.Hourly}
	}
	return &ExceededError{Window: Daily, Limit: limits.Daily}
}

// Usage returns today's counters as seen now. The hourly count reads zero
// once the stored hour has passed.
func (s *Service) Usage(ctx context.Context, userID int64) (*Record, error) {
	slot := SlotOf(s.now(), s.loc)
	rec, err := s.store.Get(ctx, userID, slot.Date)
	if err != nil {
		return nil, fmt.Errorf("getting quota usage: %w", err)
	}
	if rec == nil {
		return &Record{UserID: userID}, nil
	}
	if rec.RequestHour != slot.Hour {
		rec.HourlyCount = 0
	}
	return rec, nil
}
