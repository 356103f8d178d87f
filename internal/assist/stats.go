package assist

import (
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/usage"
)

// RateLimitUsage is the current quota row in client form.
type RateLimitUsage struct {
	HourlyCount int `json:"hourly_count"`
	DailyCount  int `json:"daily_count"`
}

// Stats is the payload of the stats endpoint.
type Stats struct {
	Today       usage.DayStats   `json:"today"`
	Month       usage.MonthStats `json:"month"`
	RateLimit   RateLimitUsage   `json:"rateLimit"`
	Limits      tier.Limits      `json:"limits"`
	LimitInfo   tier.LimitInfo   `json:"limitInfo"`
	UserTier    tier.Tier        `json:"userTier"`
	IsUnlimited bool             `json:"isUnlimited"`
}
