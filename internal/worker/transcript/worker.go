package transcript

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/chat-webhook-gateway/internal/app"
	"github.com/acme/chat-webhook-gateway/internal/domain"
	"github.com/acme/chat-webhook-gateway/internal/queue"
	"github.com/acme/chat-webhook-gateway/internal/repository"
)

// Worker consumes call events and folds them into the conversation archive
// and usage counters. At-least-once: the offset commits only after the writes.
type Worker struct {
	container *app.Container
}

// New creates a new transcript worker.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run processes call events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	groupID := cfg.Kafka.ConsumerGroupID + "-transcript"
	reader := w.container.Kafka.NewReader(cfg.Kafka.CallEventTopic, groupID)
	defer reader.Close()

	repos := w.container.Repositories()
	convs := repos.Conversations
	stats := repos.UsageStats
	logger := w.container.Logger

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("transcript worker: fetch", zap.Error(err))
			continue
		}

		var event queue.CallEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("transcript worker: unmarshal", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		tracer := otel.Tracer("chatgw.transcriptworker")
		sctx, span := tracer.Start(ctx, "call.transcript", trace.WithAttributes(
			attribute.String("call.id", event.CallID),
			attribute.String("call.app", string(event.App)),
			attribute.String("call.status", string(event.Status)),
		))

		conv := &domain.Conversation{
			ID:        uuid.New(),
			App:       event.App,
			SessionID: event.SessionID,
			UserID:    event.UserID,
			UserName:  event.UserName,
			Message:   event.Message,
			Reply:     event.Reply,
			Status:    event.Status,
			ErrorKind: event.ErrorKind,
			CreatedAt: event.OccurredAt,
		}
		if conv.CreatedAt.IsZero() {
			conv.CreatedAt = time.Now().UTC()
		}
		if err := convs.Insert(sctx, conv); err != nil {
			span.RecordError(err)
			logger.Error("transcript worker: insert conversation", zap.Error(err))
		}

		delta := repository.UsageDelta{
			MessagesDelta:   1,
			DurationMsDelta: event.DurationMs,
		}
		if event.Status != domain.CallStatusCompleted {
			delta.FailuresDelta = 1
		}
		if err := stats.ApplyDelta(sctx, event.App, conv.CreatedAt, delta); err != nil {
			span.RecordError(err)
			logger.Error("transcript worker: apply stats", zap.Error(err))
		}

		if err := reader.CommitMessages(sctx, msg); err != nil {
			span.RecordError(err)
			logger.Error("transcript worker: commit", zap.Error(err))
		}
		span.End()
	}
}
