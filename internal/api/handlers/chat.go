package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/acme/chat-webhook-gateway/internal/domain"
	chatsvc "github.com/acme/chat-webhook-gateway/internal/service/chat"
)

type chatRequest struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	PeriodDays     int    `json:"period_days"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *HandlerSet) sendAnalytics(ctx *fiber.Ctx) error {
	return h.send(ctx, domain.AppAnalytics)
}

func (h *HandlerSet) sendHealthTracker(ctx *fiber.Ctx) error {
	return h.send(ctx, domain.AppHealthTracker)
}

func (h *HandlerSet) send(ctx *fiber.Ctx, app domain.App) error {
	var req chatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.chat.Send(ctx.Context(), chatsvc.SendInput{
		App:            app,
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		UserName:       req.UserName,
		PeriodDays:     req.PeriodDays,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return translateError(ctx, err)
	}

	return ctx.JSON(reply)
}

func (h *HandlerSet) stopChat(ctx *fiber.Ctx) error {
	cancelled := h.chat.Stop()
	return ctx.JSON(fiber.Map{"cancelled": cancelled})
}

func (h *HandlerSet) connectionStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(h.tracker.Snapshot())
}
