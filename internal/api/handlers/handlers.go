package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/chat-webhook-gateway/internal/app"
	adminsvc "github.com/acme/chat-webhook-gateway/internal/service/admin"
	chatsvc "github.com/acme/chat-webhook-gateway/internal/service/chat"
	"github.com/acme/chat-webhook-gateway/internal/status"
)

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	container *app.Container
	chat      *chatsvc.Service
	admin     *adminsvc.Service
	tracker   *status.Tracker
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(container *app.Container) *HandlerSet {
	services := container.Services()
	return &HandlerSet{
		container: container,
		chat:      services.Chat,
		admin:     services.Admin,
		tracker:   container.Status().Tracker,
	}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	chat := v1.Group("/chat")
	chat.Post("/analytics", h.sendAnalytics)
	chat.Post("/health-tracker", h.sendHealthTracker)
	chat.Post("/stop", h.stopChat)

	v1.Get("/status", h.connectionStatus)

	admin := v1.Group("/admin")
	admin.Get("/conversations", h.listConversations)
	admin.Get("/stats", h.usageStats)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.container.Logger.Error("request failed", zap.Error(err))
	}

	return ctx.Status(code).JSON(fiber.Map{
		"error":    message,
		"trace_id": ctx.GetRespHeader("Trace-Id"),
	})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)

	if err := h.container.Postgres.DB().PingContext(healthCtx); err != nil {
		errs["postgres"] = err.Error()
	}

	if err := h.container.Redis.Inner().Ping(healthCtx).Err(); err != nil {
		errs["redis"] = err.Error()
	}

	if err := h.container.Scylla.Session().Query("SELECT now() FROM system.local").WithContext(healthCtx).Exec(); err != nil {
		errs["scylla"] = err.Error()
	}

	snap := h.tracker.Snapshot()
	if !snap.Connected {
		errs["webhook"] = "remote webhook unreachable"
	}

	state := fiber.StatusOK
	if len(errs) > 0 {
		state = fiber.StatusServiceUnavailable
	}

	return ctx.Status(state).JSON(fiber.Map{
		"status":   "ok",
		"errors":   errs,
		"inflight": h.container.Webhooks().Client.Inflight(),
	})
}
