package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/chat-webhook-gateway/internal/domain"
)

// CallStore persists webhook call attempt records in Scylla, partitioned by
// app and day bucket so recent attempts stay cheap to scan.
type CallStore struct {
	session *gocql.Session
}

// NewCallStore creates a new call store.
func NewCallStore(session *gocql.Session) *CallStore {
	return &CallStore{session: session}
}

// AppendAttempt inserts one attempt row.
func (s *CallStore) AppendAttempt(ctx context.Context, attempt domain.CallAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	bucket := bucketDate(attempt.CreatedAt)

	if err := s.session.Query(`INSERT INTO attempts_by_app (app, bucket, attempt_id, call_id, session_id, status, error_kind, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(attempt.App), bucket, attempt.ID.String(), attempt.CallID, attempt.SessionID,
		string(attempt.Status), attempt.ErrorKind, attempt.Error,
		attempt.Duration.Milliseconds(), attempt.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: insert attempts_by_app: %w", err)
	}

	return nil
}

// ListRecent returns today's attempts for an app, newest first.
func (s *CallStore) ListRecent(ctx context.Context, app domain.App, limit int) ([]domain.CallAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	bucket := bucketDate(time.Now().UTC())

	iter := s.session.Query(`SELECT attempt_id, call_id, session_id, status, error_kind, error, duration_ms, created_at
		FROM attempts_by_app WHERE app = ? AND bucket = ? LIMIT ?`,
		string(app), bucket, limit).WithContext(ctx).Iter()

	var (
		attempts   []domain.CallAttempt
		idStr      string
		callID     string
		sessionID  string
		status     string
		errorKind  string
		errText    string
		durationMs int64
		created    time.Time
	)

	for iter.Scan(&idStr, &callID, &sessionID, &status, &errorKind, &errText, &durationMs, &created) {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		attempts = append(attempts, domain.CallAttempt{
			ID:        id,
			CallID:    callID,
			App:       app,
			SessionID: sessionID,
			Status:    domain.CallStatus(status),
			ErrorKind: errorKind,
			Error:     errText,
			Duration:  time.Duration(durationMs) * time.Millisecond,
			CreatedAt: created,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("call store: list recent: %w", err)
	}
	return attempts, nil
}

func bucketDate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
