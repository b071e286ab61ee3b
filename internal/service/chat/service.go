package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/internal/domain"
	"github.com/acme/chat-webhook-gateway/internal/queue"
	"github.com/acme/chat-webhook-gateway/internal/repository"
	"github.com/acme/chat-webhook-gateway/internal/status"
	"github.com/acme/chat-webhook-gateway/internal/webhook"
	apperrors "github.com/acme/chat-webhook-gateway/pkg/errors"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

// Caller issues outbound webhook calls.
type Caller interface {
	Execute(ctx context.Context, req webhook.Request) webhook.Result
	CancelAll() int
}

// Sessions manages chat session state.
type Sessions interface {
	Ensure(ctx context.Context, sessionID string) (string, error)
}

// Publisher emits call events.
type Publisher interface {
	Publish(ctx context.Context, event queue.CallEvent) error
}

// Service proxies chat messages to the configured webhook backends.
type Service struct {
	cfg       config.WebhooksConfig
	caller    Caller
	sessions  Sessions
	tracker   *status.Tracker
	attempts  repository.CallStore
	publisher Publisher
	logger    *logger.Logger
}

// NewService builds the chat service. attempts and publisher may be nil when
// auditing or events are not wired (tests, degraded deployments).
func NewService(
	cfg config.WebhooksConfig,
	caller Caller,
	sessions Sessions,
	tracker *status.Tracker,
	attempts repository.CallStore,
	publisher Publisher,
	lg *logger.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		caller:    caller,
		sessions:  sessions,
		tracker:   tracker,
		attempts:  attempts,
		publisher: publisher,
		logger:    lg,
	}
}

// SendInput carries one chat message from a widget.
type SendInput struct {
	App            domain.App
	SessionID      string
	UserID         string
	UserName       string
	PeriodDays     int
	Message        string
	ConversationID string
}

// Reply is a successful chat exchange.
type Reply struct {
	SessionID string `json:"session_id"`
	Output    string `json:"output"`
}

// chatPayload is the wire shape the webhook backends expect.
type chatPayload struct {
	SessionID      string `json:"sessionId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	Duration       int    `json:"duration"`
	Message        string `json:"message"`
	App            string `json:"app"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Send proxies one message to the app's webhook and returns the normalized
// reply. Failures come back as a *webhook.CallError; validation problems as a
// plain error on the pkg/errors sentinels.
func (s *Service) Send(ctx context.Context, input SendInput) (*Reply, error) {
	if !input.App.Valid() {
		return nil, fmt.Errorf("%w: unknown app %q", apperrors.ErrValidation, input.App)
	}
	if input.Message == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}
	endpoint, err := s.endpointFor(input.App)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.sessions.Ensure(ctx, input.SessionID)
	if err != nil {
		// Session state is advisory; do not block the chat on Redis.
		s.logger.Warn("chat service: session ensure failed", zap.Error(err))
		if sessionID == "" {
			sessionID = input.SessionID
		}
	}

	payload := chatPayload{
		SessionID:      sessionID,
		UserID:         input.UserID,
		UserName:       input.UserName,
		Duration:       input.PeriodDays,
		Message:        input.Message,
		App:            string(input.App),
		ConversationID: input.ConversationID,
	}

	started := time.Now()
	result := s.caller.Execute(ctx, webhook.Request{
		Endpoint:  endpoint,
		Payload:   payload,
		KeyPrefix: string(input.App),
		Timeout:   s.cfg.RequestTimeout,
	})
	elapsed := time.Since(started)

	if !result.OK() {
		s.settle(ctx, input, sessionID, "", result.Err, elapsed)
		return nil, result.Err
	}

	output, nerr := webhook.ChatReply(result.Raw)
	if nerr != nil {
		s.settle(ctx, input, sessionID, "", nerr, elapsed)
		return nil, nerr
	}

	s.settle(ctx, input, sessionID, output, nil, elapsed)
	return &Reply{SessionID: sessionID, Output: output}, nil
}

// Stop cancels every in-flight call and returns how many were signalled.
func (s *Service) Stop() int {
	return s.caller.CancelAll()
}

// settle updates the connection tracker and records the attempt. Neither may
// mask the chat result, so failures here are only logged.
func (s *Service) settle(ctx context.Context, input SendInput, sessionID, reply string, callErr *webhook.CallError, elapsed time.Duration) {
	callStatus := domain.CallStatusCompleted
	errorKind := ""
	errText := ""

	if callErr != nil {
		errorKind = string(callErr.Kind)
		errText = callErr.Message
		switch callErr.Kind {
		case webhook.KindUserCancelled:
			// Benign; leave the tracker untouched.
			callStatus = domain.CallStatusCancelled
		case webhook.KindTimeout:
			callStatus = domain.CallStatusTimedOut
			s.tracker.SetStatus(false, string(input.App))
		case webhook.KindNetwork:
			callStatus = domain.CallStatusFailed
			s.tracker.SetStatus(false, string(input.App))
		default:
			// The endpoint answered; it is reachable even if unhappy.
			callStatus = domain.CallStatusFailed
		}
	} else {
		s.tracker.SetStatus(true, string(input.App))
	}

	callID := fmt.Sprintf("%s-%d", input.App, time.Now().UnixNano())
	if s.attempts != nil {
		attempt := domain.CallAttempt{
			CallID:    callID,
			App:       input.App,
			SessionID: sessionID,
			Status:    callStatus,
			ErrorKind: errorKind,
			Error:     errText,
			Duration:  elapsed,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.attempts.AppendAttempt(ctx, attempt); err != nil {
			s.logger.Warn("chat service: append attempt", zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := queue.CallEvent{
			CallID:     callID,
			App:        input.App,
			SessionID:  sessionID,
			UserID:     input.UserID,
			UserName:   input.UserName,
			Status:     callStatus,
			ErrorKind:  errorKind,
			Error:      errText,
			Message:    input.Message,
			Reply:      reply,
			DurationMs: elapsed.Milliseconds(),
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("chat service: publish event", zap.Error(err))
		}
	}
}

func (s *Service) endpointFor(app domain.App) (string, error) {
	switch app {
	case domain.AppAnalytics:
		if s.cfg.AnalyticsEndpoint == "" {
			return "", fmt.Errorf("%w: analytics webhook not configured", apperrors.ErrUnavailable)
		}
		return s.cfg.AnalyticsEndpoint, nil
	case domain.AppHealthTracker:
		if s.cfg.HealthTrackerEndpoint == "" {
			return "", fmt.Errorf("%w: health-tracker webhook not configured", apperrors.ErrUnavailable)
		}
		return s.cfg.HealthTrackerEndpoint, nil
	default:
		return "", fmt.Errorf("%w: unknown app %q", apperrors.ErrValidation, app)
	}
}
