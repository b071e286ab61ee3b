package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HandlerSet) listConversations(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	pageSize := ctx.QueryInt("page_size", 20)

	result, err := h.admin.Conversations(ctx.Context(), page, pageSize)
	if err != nil {
		return translateError(ctx, err)
	}
	return ctx.JSON(result)
}

func (h *HandlerSet) usageStats(ctx *fiber.Ctx) error {
	days := ctx.QueryInt("days", 7)

	result, err := h.admin.UsageStats(ctx.Context(), days)
	if err != nil {
		return translateError(ctx, err)
	}
	return ctx.JSON(result)
}
