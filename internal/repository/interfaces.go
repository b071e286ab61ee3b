package repository

import (
	"context"
	"time"

	"github.com/acme/chat-webhook-gateway/internal/domain"
	apperrors "github.com/acme/chat-webhook-gateway/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = apperrors.ErrConflict
)

// ConversationRepository archives chat exchanges for the admin dashboard.
type ConversationRepository interface {
	Insert(ctx context.Context, conv *domain.Conversation) error
	ListPage(ctx context.Context, limit, offset int) ([]domain.Conversation, int64, error)
}

// UsageStatsRepository keeps per-app, per-day usage counters.
type UsageStatsRepository interface {
	ApplyDelta(ctx context.Context, app domain.App, day time.Time, delta UsageDelta) error
	Range(ctx context.Context, since time.Time) ([]domain.UsageStat, error)
}

// CallStore persists per-attempt audit rows for outbound webhook calls.
type CallStore interface {
	AppendAttempt(ctx context.Context, attempt domain.CallAttempt) error
	ListRecent(ctx context.Context, app domain.App, limit int) ([]domain.CallAttempt, error)
}

// UsageDelta captures atomic counter increments.
type UsageDelta struct {
	MessagesDelta   int64
	FailuresDelta   int64
	DurationMsDelta int64
}
