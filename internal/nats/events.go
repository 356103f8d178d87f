package nats

import (
	"time"

	"github.com/google/uuid"
)

// StreamAIEvents holds every AI usage and quota event.
const StreamAIEvents = "NOTEBOOK_AI_EVENTS"

// Subjects.
const (
	SubjectAIEvents      = "notebook.ai.>"
	SubjectUsagePrefix   = "notebook.ai.usage" // notebook.ai.usage.{action}
	SubjectQuotaRejected = "notebook.ai.quota.rejected"
)

// UsageEvent mirrors one ai_usage_logs row.
type UsageEvent struct {
	ID               uuid.UUID `json:"id"`
	UserID           int64     `json:"user_id"`
	NoteID           *int64    `json:"note_id,omitempty"`
	Action           string    `json:"action"`
	Mode             string    `json:"mode"` // sync or stream
	TokensUsed       int       `json:"tokens_used"`
	TokensEstimated  bool      `json:"tokens_estimated"`
	Cost             string    `json:"cost"`
	Model            string    `json:"model"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// QuotaRejectedEvent is published when a request is refused by the tier quota.
type QuotaRejectedEvent struct {
	UserID    int64     `json:"user_id"`
	Tier      string    `json:"tier"`
	Window    string    `json:"window"` // hourly or daily
	Limit     int       `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}
