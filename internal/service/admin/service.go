package admin

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/internal/domain"
	"github.com/acme/chat-webhook-gateway/internal/repository"
	"github.com/acme/chat-webhook-gateway/internal/webhook"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

// Caller issues outbound webhook calls.
type Caller interface {
	Execute(ctx context.Context, req webhook.Request) webhook.Result
}

// SessionCounter reports live session counts.
type SessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Service serves the admin dashboard data. It is a pass-through to the remote
// admin webhook; when the remote is unreachable it falls back to the local
// archive, and as a last resort to seeded sample data so the dashboard keeps
// rendering.
type Service struct {
	cfg      config.WebhooksConfig
	caller   Caller
	convs    repository.ConversationRepository
	stats    repository.UsageStatsRepository
	sessions SessionCounter
	logger   *logger.Logger
}

// NewService builds the admin service. convs, stats and sessions may be nil;
// the corresponding fallback is skipped.
func NewService(
	cfg config.WebhooksConfig,
	caller Caller,
	convs repository.ConversationRepository,
	stats repository.UsageStatsRepository,
	sessions SessionCounter,
	lg *logger.Logger,
) *Service {
	return &Service{cfg: cfg, caller: caller, convs: convs, stats: stats, sessions: sessions, logger: lg}
}

// ConversationPage is one page of conversation logs plus where it came from.
type ConversationPage struct {
	Conversations []domain.Conversation `json:"conversations"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	Source        string                `json:"source"`
}

// Stats summarizes chat usage over a window.
type Stats struct {
	TotalMessages  int64            `json:"total_messages"`
	TotalFailures  int64            `json:"total_failures"`
	ActiveSessions int64            `json:"active_sessions"`
	ByApp          map[string]int64 `json:"by_app"`
	Days           int              `json:"days"`
	Source         string           `json:"source"`
}

// Conversations returns one page of conversation logs.
func (s *Service) Conversations(ctx context.Context, page, pageSize int) (*ConversationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	if remote := s.remoteConversations(ctx, page, pageSize); remote != nil {
		return remote, nil
	}

	if s.convs != nil {
		rows, total, err := s.convs.ListPage(ctx, pageSize, (page-1)*pageSize)
		if err == nil {
			return &ConversationPage{
				Conversations: rows,
				Total:         total,
				Page:          page,
				PageSize:      pageSize,
				Source:        "archive",
			}, nil
		}
		s.logger.Warn("admin service: archive fallback failed", zap.Error(err))
	}

	return sampleConversations(page, pageSize), nil
}

// UsageStats returns usage counters for the last days days.
func (s *Service) UsageStats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 || days > 365 {
		days = 7
	}

	if remote := s.remoteStats(ctx, days); remote != nil {
		return remote, nil
	}

	if s.stats != nil {
		since := time.Now().UTC().AddDate(0, 0, -days)
		rows, err := s.stats.Range(ctx, since)
		if err == nil {
			out := &Stats{ByApp: make(map[string]int64), Days: days, Source: "archive"}
			for _, row := range rows {
				out.TotalMessages += row.Messages
				out.TotalFailures += row.Failures
				out.ByApp[string(row.App)] += row.Messages
			}
			if s.sessions != nil {
				if n, err := s.sessions.Count(ctx); err == nil {
					out.ActiveSessions = n
				}
			}
			return out, nil
		}
		s.logger.Warn("admin service: stats fallback failed", zap.Error(err))
	}

	return sampleStats(days), nil
}

// remoteConversations asks the admin webhook for a page of logs. Any failure
// (unreachable, bad shape) returns nil so the caller can fall back.
func (s *Service) remoteConversations(ctx context.Context, page, pageSize int) *ConversationPage {
	if s.cfg.AdminEndpoint == "" {
		return nil
	}

	result := s.caller.Execute(ctx, webhook.Request{
		Endpoint: s.cfg.AdminEndpoint,
		Payload: map[string]any{
			"action":    "list_conversations",
			"page":      page,
			"page_size": pageSize,
		},
		KeyPrefix: "admin-conversations",
		Timeout:   s.cfg.RequestTimeout,
	})
	if !result.OK() {
		s.logger.Warn("admin service: remote conversations failed",
			zap.String("kind", string(result.Err.Kind)), zap.String("error", result.Err.Message))
		return nil
	}

	obj, nerr := webhook.Normalize(result.Raw,
		webhook.FieldSpec{Name: "conversations", Kind: webhook.FieldArray},
		webhook.FieldSpec{Name: "total", Kind: webhook.FieldNumber},
	)
	if nerr != nil {
		s.logger.Warn("admin service: remote conversations malformed", zap.String("error", nerr.Message))
		return nil
	}

	raw, err := json.Marshal(obj["conversations"])
	if err != nil {
		return nil
	}
	var rows []domain.Conversation
	if err := json.Unmarshal(raw, &rows); err != nil {
		s.logger.Warn("admin service: remote conversations decode", zap.Error(err))
		return nil
	}

	return &ConversationPage{
		Conversations: rows,
		Total:         int64(obj["total"].(float64)),
		Page:          page,
		PageSize:      pageSize,
		Source:        "remote",
	}
}

func (s *Service) remoteStats(ctx context.Context, days int) *Stats {
	if s.cfg.AdminEndpoint == "" {
		return nil
	}

	result := s.caller.Execute(ctx, webhook.Request{
		Endpoint: s.cfg.AdminEndpoint,
		Payload: map[string]any{
			"action": "usage_stats",
			"days":   days,
		},
		KeyPrefix: "admin-stats",
		Timeout:   s.cfg.RequestTimeout,
	})
	if !result.OK() {
		s.logger.Warn("admin service: remote stats failed",
			zap.String("kind", string(result.Err.Kind)), zap.String("error", result.Err.Message))
		return nil
	}

	obj, nerr := webhook.Normalize(result.Raw,
		webhook.FieldSpec{Name: "totalMessages", Kind: webhook.FieldNumber},
		webhook.FieldSpec{Name: "activeSessions", Kind: webhook.FieldNumber},
		webhook.FieldSpec{Name: "byApp", Kind: webhook.FieldObject},
	)
	if nerr != nil {
		s.logger.Warn("admin service: remote stats malformed", zap.String("error", nerr.Message))
		return nil
	}

	out := &Stats{
		TotalMessages:  int64(obj["totalMessages"].(float64)),
		ActiveSessions: int64(obj["activeSessions"].(float64)),
		ByApp:          make(map[string]int64),
		Days:           days,
		Source:         "remote",
	}
	for app, v := range obj["byApp"].(map[string]any) {
		if n, ok := v.(float64); ok {
			out.ByApp[app] = int64(n)
		}
	}
	if v, ok := obj["totalFailures"].(float64); ok {
		out.TotalFailures = int64(v)
	}
	return out
}
