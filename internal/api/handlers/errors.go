package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/chat-webhook-gateway/internal/repository"
	"github.com/acme/chat-webhook-gateway/internal/webhook"
	apperrors "github.com/acme/chat-webhook-gateway/pkg/errors"
)

// translateError maps service errors onto HTTP responses. Webhook call
// failures carry their kind so widgets can drive retry banners; user
// cancellation is benign and answers 200.
func translateError(ctx *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var callErr *webhook.CallError
	if errors.As(err, &callErr) {
		return respondCallError(ctx, callErr)
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "resource not found")
	case errors.Is(err, apperrors.ErrConflict) || errors.Is(err, repository.ErrConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

func respondCallError(ctx *fiber.Ctx, callErr *webhook.CallError) error {
	body := fiber.Map{
		"error":     callErr.Message,
		"kind":      string(callErr.Kind),
		"retryable": callErr.Retryable(),
	}

	switch callErr.Kind {
	case webhook.KindUserCancelled:
		body["cancelled"] = true
		return ctx.Status(http.StatusOK).JSON(body)
	case webhook.KindTimeout:
		return ctx.Status(http.StatusGatewayTimeout).JSON(body)
	case webhook.KindHTTP:
		body["upstream_status"] = callErr.Status
		if callErr.Body != "" {
			body["upstream_body"] = callErr.Body
		}
		return ctx.Status(http.StatusBadGateway).JSON(body)
	default:
		return ctx.Status(http.StatusBadGateway).JSON(body)
	}
}
