package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/acme/chat-webhook-gateway/internal/domain"
)

// Seeded sample data so the dashboard renders while both the remote webhook
// and the local archive are unavailable.

func sampleConversations(page, pageSize int) *ConversationPage {
	now := time.Now().UTC()
	rows := []domain.Conversation{
		{
			ID:        uuid.MustParse("6f8b9b66-0d1a-4a3c-9a6e-111111111111"),
			App:       domain.AppAnalytics,
			SessionID: "sample-session-1",
			UserID:    "sample-user",
			UserName:  "Sample User",
			Message:   "How did the campaign perform last week?",
			Reply:     "Impressions rose 12% week over week.",
			Status:    domain.CallStatusCompleted,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:        uuid.MustParse("6f8b9b66-0d1a-4a3c-9a6e-222222222222"),
			App:       domain.AppHealthTracker,
			SessionID: "sample-session-2",
			UserID:    "sample-user",
			UserName:  "Sample User",
			Message:   "Summarize my sleep for the past 7 days.",
			Reply:     "You averaged 7h12m of sleep this week.",
			Status:    domain.CallStatusCompleted,
			CreatedAt: now.Add(-26 * time.Hour),
		},
	}

	if page > 1 {
		rows = nil
	}
	return &ConversationPage{
		Conversations: rows,
		Total:         int64(len(rows)),
		Page:          page,
		PageSize:      pageSize,
		Source:        "sample",
	}
}

func sampleStats(days int) *Stats {
	return &Stats{
		TotalMessages:  42,
		TotalFailures:  3,
		ActiveSessions: 2,
		ByApp: map[string]int64{
			string(domain.AppAnalytics):     28,
			string(domain.AppHealthTracker): 14,
		},
		Days:   days,
		Source: "sample",
	}
}
