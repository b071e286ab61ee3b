package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acme/chat-webhook-gateway/internal/domain"
	"github.com/acme/chat-webhook-gateway/internal/repository"
)

// UsageStatsRepository implements repository.UsageStatsRepository.
type UsageStatsRepository struct {
	db *sqlx.DB
}

// NewUsageStatsRepository builds the repository.
func NewUsageStatsRepository(db *sqlx.DB) *UsageStatsRepository {
	return &UsageStatsRepository{db: db}
}

// ApplyDelta applies counter deltas atomically, creating the day row when
// needed.
func (r *UsageStatsRepository) ApplyDelta(ctx context.Context, app domain.App, day time.Time, delta repository.UsageDelta) error {
	day = day.UTC().Truncate(24 * time.Hour)

	_, err := r.db.ExecContext(ctx, `INSERT INTO usage_stats (app, day, messages, failures, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (app, day) DO UPDATE SET
			messages = usage_stats.messages + $3,
			failures = usage_stats.failures + $4,
			duration_ms = usage_stats.duration_ms + $5`,
		app, day, delta.MessagesDelta, delta.FailuresDelta, delta.DurationMsDelta,
	)
	if err != nil {
		return fmt.Errorf("usage stats: apply delta: %w", err)
	}
	return nil
}

// Range returns per-app daily counters from since onward.
func (r *UsageStatsRepository) Range(ctx context.Context, since time.Time) ([]domain.UsageStat, error) {
	rows := []domain.UsageStat{}
	q := `SELECT app, day, messages, failures, duration_ms
		FROM usage_stats WHERE day >= $1 ORDER BY day, app`
	if err := r.db.SelectContext(ctx, &rows, q, since.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, fmt.Errorf("usage stats: range: %w", err)
	}
	return rows, nil
}
