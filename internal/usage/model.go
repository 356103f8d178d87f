package usage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invocation modes.
const (
	ModeSync   = "sync"
	ModeStream = "stream"
)

// HistoryTTL is how long a history row stays logically valid.
const HistoryTTL = 30 * 24 * time.Hour

// Entry describes one AI invocation, successful or not.
type Entry struct {
	UserID         int64
	NoteID         *int64
	Action         string
	Mode           string
	InputLength    int
	OutputLength   int
	TokensUsed     int
	Estimated      bool
	Provider       string
	Model          string
	Success        bool
	ErrorMessage   string
	ProcessingTime time.Duration
}

// HistoryEntry snapshots a successful invocation's input and output.
type HistoryEntry struct {
	UserID          int64
	NoteID          *int64
	Action          string
	OriginalContent string
	ResultContent   string
	Options         any
	TokensUsed      int
}

// Period is a half-open time range [From, To).
type Period struct {
	From time.Time
	To   time.Time
}

// Aggregate sums usage rows over a period.
type Aggregate struct {
	Requests  int64
	Tokens    int64
	Cost      decimal.Decimal
	AvgTimeMs float64
}

// DayStats is today's usage as returned by the stats endpoint.
type DayStats struct {
	TotalRequests int64           `json:"total_requests"`
	TotalTokens   int64           `json:"total_tokens"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	AvgTime       float64         `json:"avg_time"`
}

// MonthStats is the current calendar month's usage.
type MonthStats struct {
	TotalRequests int64           `json:"total_requests"`
	TotalTokens   int64           `json:"total_tokens"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// Summary groups today's and this month's usage.
type Summary struct {
	Today DayStats   `json:"today"`
	Month MonthStats `json:"month"`
}

// Cost prices tokens at unitPrice per thousand, rounded to 6 decimal places.
func Cost(tokens int, unitPrice decimal.Decimal) decimal.Decimal {
	if tokens <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(tokens)).
		Mul(unitPrice).
		Div(decimal.NewFromInt(1000)).
		Round(6)
}
