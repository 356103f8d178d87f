package tier

import (
	"fmt"
	"math"
)

type WarningLevel string

const (
	Safe    WarningLevel = "safe"
	Warning WarningLevel = "warning"
	Danger  WarningLevel = "danger"
)

// WindowInfo is the display form of one quota window.
type WindowInfo struct {
	Used         int          `json:"used"`
	Limit        int          `json:"limit"`
	Remaining    int          `json:"remaining"`
	Percentage   int          `json:"percentage"`
	WarningLevel WarningLevel `json:"warningLevel"`
	Display      string       `json:"display"`
}

// LimitInfo summarises a user's quota position for the stats endpoint.
type LimitInfo struct {
	Tier        Tier       `json:"tier"`
	Description string     `json:"description"`
	IsUnlimited bool       `json:"isUnlimited"`
	Hourly      WindowInfo `json:"hourly"`
	Daily       WindowInfo `json:"daily"`
	MaxTokens   int        `json:"maxTokens"`
}

// FormatLimitInfo combines limits with the current counters.
func FormatLimitInfo(l Limits, hourlyUsed, dailyUsed int) LimitInfo {
	return LimitInfo{
		Tier:        l.Tier,
		Description: l.Description,
		IsUnlimited: l.IsUnlimited(),
		Hourly:      window(hourlyUsed, l.Hourly),
		Daily:       window(dailyUsed, l.Daily),
		MaxTokens:   l.MaxTokens,
	}
}

func window(used, limit int) WindowInfo {
	pct := UsagePercentage(used, limit)
	display := "无限制"
	if limit != Unlimited {
		display = fmt.Sprintf("%d / %d", used, limit)
	}
	return WindowInfo{
		Used:         used,
		Limit:        limit,
		Remaining:    Remaining(used, limit),
		Percentage:   pct,
		WarningLevel: Level(pct),
		Display:      display,
	}
}

// Remaining returns the calls left in a window, or Unlimited.
func Remaining(used, limit int) int {
	if limit == Unlimited {
		return Unlimited
	}
	return max(0, limit-used)
}

// UsagePercentage is used/limit as a rounded percentage capped at 100.
func UsagePercentage(used, limit int) int {
	switch limit {
	case Unlimited:
		return 0
	case 0:
		return 100
	}
	pct := int(math.Round(float64(used) / float64(limit) * 100))
	return min(100, pct)
}

func Level(pct int) WarningLevel {
	switch {
	case pct >= 90:
		return Danger
	case pct >= 70:
		return Warning
	default:
		return Safe
	}
}
