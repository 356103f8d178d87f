// Package tier maps subscription levels to request quotas.
package tier

import "time"

type Tier string

const (
	Free       Tier = "free"
	Basic      Tier = "basic"
	Pro        Tier = "pro"
	Enterprise Tier = "enterprise"
)

// Unlimited is the sentinel for a window without a ceiling.
const Unlimited = -1

// Limits are the quota ceilings of one tier.
type Limits struct {
	Tier        Tier   `json:"tier"`
	Hourly      int    `json:"hourly"`
	Daily       int    `json:"daily"`
	MaxTokens   int    `json:"maxTokens"`
	Description string `json:"description"`
}

// IsUnlimited reports whether both windows are uncapped.
func (l Limits) IsUnlimited() bool {
	return l.Hourly == Unlimited && l.Daily == Unlimited
}

var table = map[Tier]Limits{
	Free:       {Tier: Free, Hourly: 10, Daily: 50, MaxTokens: 2048, Description: "免费用户"},
	Basic:      {Tier: Basic, Hourly: 30, Daily: 200, MaxTokens: 4096, Description: "基础会员"},
	Pro:        {Tier: Pro, Hourly: 100, Daily: 1000, MaxTokens: 8192, Description: "专业会员"},
	Enterprise: {Tier: Enterprise, Hourly: Unlimited, Daily: Unlimited, MaxTokens: 16384, Description: "企业用户"},
}

// Subscription is the slice of the users row that decides the tier.
type Subscription struct {
	Tier         Tier       `json:"tier"`
	IsSubscribed bool       `json:"is_subscribed"`
	Expiry       *time.Time `json:"subscription_expiry,omitempty"`
}

// Active reports whether the subscription is paid up at now.
func (s Subscription) Active(now time.Time) bool {
	return s.IsSubscribed && s.Expiry != nil && s.Expiry.After(now)
}

// Resolve returns the limits that apply to sub at now. Lapsed or missing
// subscriptions fall back to the free tier.
func Resolve(sub Subscription, now time.Time) Limits {
	t := Free
	if sub.Active(now) {
		t = sub.Tier
		if t == "" {
			t = Basic
		}
	}
	return Lookup(t)
}

// Lookup returns the limits of t, or the free tier's for an unknown value.
func Lookup(t Tier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[Free]
}

// Valid reports whether t names a known tier.
func Valid(t Tier) bool {
	_, ok := table[t]
	return ok
}
