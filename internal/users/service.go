package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

// DefaultSubscriptionDays is the length of an upgrade or renewal when none is given.
const DefaultSubscriptionDays = 30

var (
	ErrUserNotFound = errors.New("用户不存在")
	ErrInvalidTier  = errors.New("无效的用户等级")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Subscription returns the user's subscription. Unknown users get the zero
// subscription, which resolves to the free tier.
func (s *Service) Subscription(ctx context.Context, userID int64) (tier.Subscription, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return tier.Subscription{}, err
	}
	if u == nil {
		return tier.Subscription{Tier: tier.Free}, nil
	}
	return u.Subscription(), nil
}

// Show returns the user with the given id.
func (s *Service) Show(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Upgrade moves the user to t with a subscription lasting days from now.
// Upgrading to the free tier is a downgrade.
func (s *Service) Upgrade(ctx context.Context, userID int64, t tier.Tier, days int) (*User, error) {
	if !tier.Valid(t) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTier, t)
	}
	if t == tier.Free {
		return s.Downgrade(ctx, userID)
	}
	if days <= 0 {
		days = DefaultSubscriptionDays
	}

	expiry := s.now().AddDate(0, 0, days)
	if err := s.update(ctx, userID, t, true, &expiry); err != nil {
		return nil, err
	}
	return s.Show(ctx, userID)
}

// Downgrade returns the user to the free tier and clears the subscription.
func (s *Service) Downgrade(ctx context.Context, userID int64) (*User, error) {
	if err := s.update(ctx, userID, tier.Free, false, nil); err != nil {
		return nil, err
	}
	return s.Show(ctx, userID)
}

// Renew extends the subscription by days, counted from the current expiry
// when it is still in the future.
func (s *Service) Renew(ctx context.Context, userID int64, days int) (*User, error) {
	u, err := s.Show(ctx, userID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultSubscriptionDays
	}

	base := s.now()
	if u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(base) {
		base = *u.SubscriptionExpiry
	}
	expiry := base.AddDate(0, 0, days)

	t := u.Tier
	if t == "" || t == tier.Free {
		t = tier.Basic
	}
	if err := s.update(ctx, userID, t, true, &expiry); err != nil {
		return nil, err
	}
	return s.Show(ctx, userID)
}

func (s *Service) update(ctx context.Context, userID int64, t tier.Tier, subscribed bool, expiry *time.Time) error {
	ok, err := s.repo.UpdateSubscription(ctx, userID, t, subscribed, expiry)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
