package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/internal/webhook"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

type fakeCaller struct {
	result  webhook.Result
	lastReq webhook.Request
}

func (f *fakeCaller) Execute(_ context.Context, req webhook.Request) webhook.Result {
	f.lastReq = req
	return f.result
}

func newTestService(t *testing.T, caller Caller) *Service {
	t.Helper()
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := config.WebhooksConfig{AdminEndpoint: "https://backend.example/admin"}
	return NewService(cfg, caller, nil, nil, nil, lg)
}

func TestConversationsRemote(t *testing.T) {
	raw := `{
		"total": 2,
		"conversations": [
			{"app":"analytics","session_id":"s1","message":"hi","reply":"hello","status":"completed"},
			{"app":"health-tracker","session_id":"s2","message":"sleep?","reply":"7h","status":"completed"}
		]
	}`
	caller := &fakeCaller{result: webhook.Result{Raw: json.RawMessage(raw)}}
	svc := newTestService(t, caller)

	page, err := svc.Conversations(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Source != "remote" {
		t.Fatalf("expected remote source, got %s", page.Source)
	}
	if page.Total != 2 || len(page.Conversations) != 2 {
		t.Fatalf("unexpected page: total=%d rows=%d", page.Total, len(page.Conversations))
	}
	if page.Conversations[0].SessionID != "s1" {
		t.Fatalf("unexpected first row: %+v", page.Conversations[0])
	}

	payload, ok := caller.lastReq.Payload.(map[string]any)
	if !ok || payload["action"] != "list_conversations" {
		t.Fatalf("unexpected request payload: %+v", caller.lastReq.Payload)
	}
}

func TestConversationsSampleFallback(t *testing.T) {
	caller := &fakeCaller{result: webhook.Result{Err: &webhook.CallError{
		Kind: webhook.KindNetwork, Message: "connection refused",
	}}}
	svc := newTestService(t, caller)

	page, err := svc.Conversations(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Source != "sample" {
		t.Fatalf("expected sample fallback, got %s", page.Source)
	}
	if len(page.Conversations) == 0 {
		t.Fatal("expected seeded sample rows")
	}
}

func TestConversationsMalformedRemoteFallsBack(t *testing.T) {
	caller := &fakeCaller{result: webhook.Result{Raw: json.RawMessage(`{"rows":[]}`)}}
	svc := newTestService(t, caller)

	page, err := svc.Conversations(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Source != "sample" {
		t.Fatalf("expected fallback on malformed remote shape, got %s", page.Source)
	}
}

func TestConversationsPageClamping(t *testing.T) {
	caller := &fakeCaller{result: webhook.Result{Err: &webhook.CallError{Kind: webhook.KindTimeout}}}
	svc := newTestService(t, caller)

	page, err := svc.Conversations(context.Background(), -1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Page != 1 || page.PageSize != 20 {
		t.Fatalf("expected clamped paging, got page=%d size=%d", page.Page, page.PageSize)
	}
}

func TestUsageStatsRemote(t *testing.T) {
	raw := `{
		"totalMessages": 120,
		"totalFailures": 4,
		"activeSessions": 9,
		"byApp": {"analytics": 80, "health-tracker": 40}
	}`
	caller := &fakeCaller{result: webhook.Result{Raw: json.RawMessage(raw)}}
	svc := newTestService(t, caller)

	stats, err := svc.UsageStats(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Source != "remote" {
		t.Fatalf("expected remote source, got %s", stats.Source)
	}
	if stats.TotalMessages != 120 || stats.ActiveSessions != 9 || stats.TotalFailures != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByApp["analytics"] != 80 {
		t.Fatalf("unexpected by-app counters: %v", stats.ByApp)
	}
}

func TestUsageStatsSampleFallback(t *testing.T) {
	caller := &fakeCaller{result: webhook.Result{Err: &webhook.CallError{
		Kind: webhook.KindHTTP, Message: "API error: 503 Service Unavailable", Status: 503,
	}}}
	svc := newTestService(t, caller)

	stats, err := svc.UsageStats(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Source != "sample" {
		t.Fatalf("expected sample fallback, got %s", stats.Source)
	}
	if stats.Days != 7 {
		t.Fatalf("expected clamped days 7, got %d", stats.Days)
	}
}
