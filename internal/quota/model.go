package quota

import (
	"fmt"
	"time"
)

// Record matches the ai_rate_limits table schema: one row per user per day.
type Record struct {
	UserID        int64     `json:"user_id"`
	RequestDate   time.Time `json:"request_date"`
	RequestHour   int       `json:"request_hour"`
	HourlyCount   int       `json:"hourly_count"`
	DailyCount    int       `json:"daily_count"`
	LastRequestAt time.Time `json:"last_request_at"`
}

// Slot identifies the calendar day and wall-clock hour a request falls into.
type Slot struct {
	Date string // YYYY-MM-DD
	Hour int
	At   time.Time
}

// SlotOf places t in loc.
func SlotOf(t time.Time, loc *time.Location) Slot {
	local := t.In(loc)
	return Slot{Date: local.Format(time.DateOnly), Hour: local.Hour(), At: t}
}

type Window string

const (
	Hourly Window = "hourly"
	Daily  Window = "daily"
)

// ExceededError reports which quota window rejected a request.
type ExceededError struct {
	Window Window
	Limit  int
}

func (e *ExceededError) Error() string {
	if e.Window == Hourly {
		return fmt.Sprintf("已达到每小时请求上限（%d 次），请稍后再试或升级会员获取更高额度", e.Limit)
	}
	return fmt.Sprintf("已达到每日请求上限（%d 次），请明天再试或升级会员获取更高额度", e.Limit)
}
