package users

import (
	"time"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
)

// User is the subset of the users table the AI service reads and manages.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Tier               tier.Tier  `json:"tier"`
	IsSubscribed       bool       `json:"is_subscribed"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
}

// Subscription returns the fields that decide the user's tier.
func (u *User) Subscription() tier.Subscription {
	return tier.Subscription{
		Tier:         u.Tier,
		IsSubscribed: u.IsSubscribed,
		Expiry:       u.SubscriptionExpiry,
	}
}
