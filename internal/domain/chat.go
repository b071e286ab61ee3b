package domain

import (
	"time"

	"github.com/google/uuid"
)

// App discriminates which chat product a call belongs to.
type App string

const (
	AppAnalytics     App = "analytics"
	AppHealthTracker App = "health-tracker"
)

// Valid reports whether the app discriminator is known.
func (a App) Valid() bool {
	return a == AppAnalytics || a == AppHealthTracker
}

// CallStatus is the terminal state of one webhook call.
type CallStatus string

const (
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
	CallStatusCancelled CallStatus = "cancelled"
	CallStatusTimedOut  CallStatus = "timed_out"
)

// Conversation is one archived message/reply exchange.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	App       App       `db:"app" json:"app"`
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserName  string    `db:"user_name" json:"user_name"`
	Message   string    `db:"message" json:"message"`
	Reply     string    `db:"reply" json:"reply"`
	Status    CallStatus `db:"status" json:"status"`
	ErrorKind string    `db:"error_kind" json:"error_kind,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UsageStat aggregates per-app counters for one day.
type UsageStat struct {
	App        App       `db:"app" json:"app"`
	Day        time.Time `db:"day" json:"day"`
	Messages   int64     `db:"messages" json:"messages"`
	Failures   int64     `db:"failures" json:"failures"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
}

// CallAttempt is one audit row for an outbound webhook call.
type CallAttempt struct {
	ID         uuid.UUID
	CallID     string
	App        App
	SessionID  string
	Status     CallStatus
	ErrorKind  string
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}
