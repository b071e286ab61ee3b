package queue

import (
	"time"

	"github.com/acme/chat-webhook-gateway/internal/domain"
)

// CallEvent describes one settled webhook call. Published for every chat
// exchange regardless of outcome; the transcript worker folds these into the
// conversation archive and usage counters.
type CallEvent struct {
	CallID     string            `json:"call_id"`
	App        domain.App        `json:"app"`
	SessionID  string            `json:"session_id"`
	UserID     string            `json:"user_id"`
	UserName   string            `json:"user_name"`
	Status     domain.CallStatus `json:"status"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Error      string            `json:"error,omitempty"`
	Message    string            `json:"message"`
	Reply      string            `json:"reply,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	OccurredAt time.Time         `json:"occurred_at"`
}
