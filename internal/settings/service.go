package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Store is the persistence the service needs.
type Store interface {
	GetOrCreate(ctx context.Context, userID int64) (*Settings, error)
	Update(ctx context.Context, userID int64, p Patch) error
}

// RowCache is an optional read-through cache in front of Store.
type RowCache interface {
	Get(ctx context.Context, userID int64) (*Settings, error)
	Generation(ctx context.Context, userID int64) (string, error)
	SetIfGeneration(ctx context.Context, s *Settings, gen string) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

// Service resolves and updates per-user AI settings.
type Service struct {
	store Store
	cache RowCache
	group singleflight.Group
}

// NewService creates a settings Service. cache may be nil.
func NewService(store Store, cache RowCache) *Service {
	return &Service{store: store, cache: cache}
}

// GetOrCreate returns the user's settings, inserting defaults on first access.
// Concurrent first accesses for one user share a single store call.
func (s *Service) GetOrCreate(ctx context.Context, userID int64) (*Settings, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("settings: cache read failed", "user_id", userID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		// The generation must be read before the row.
		var (
			gen    string
			genErr error
		)
		if s.cache != nil {
			gen, genErr = s.cache.Generation(ctx, userID)
		}

		row, err := s.store.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && genErr == nil {
			stored, err := s.cache.SetIfGeneration(ctx, row, gen)
			switch {
			case err != nil:
				slog.Warn("settings: cache write failed", "user_id", userID, "error", err)
			case !stored:
				slog.Debug("settings: skipped caching a row older than the last update", "user_id", userID)
			}
		}
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	// Callers may mutate the result; hand each one its own copy.
	row := *v.(*Settings)
	return &row, nil
}

// Update validates p and writes its set fields. An invalid field rejects the whole patch.
func (s *Service) Update(ctx context.Context, userID int64, p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Empty() {
		return nil
	}

	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return fmt.Errorf("ensuring settings: %w", err)
	}
	if err := s.store.Update(ctx, userID, p); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			slog.Warn("settings: cache invalidation failed", "user_id", userID, "error", err)
		}
	}
	return nil
}
