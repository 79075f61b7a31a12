package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localhub-app/LocalHub/internal/pkg/billing"
)

// User-facing error categories. Gateway-specific error strings never reach
// the client; every billing error is folded into this closed set and the
// presentation layer formats the final message.
const (
	ErrCategoryUnresolvableAmount = "unresolvable_amount"
	ErrCategoryPaymentFailed      = "payment_failed"
	ErrCategoryTooEarly           = "too_early"
	ErrCategoryInvalidTransition  = "invalid_transition"
	ErrCategoryInvalid            = "invalid"
	ErrCategoryNotFound           = "not_found"
	ErrCategoryUnavailable        = "temporarily_unavailable"
	ErrCategoryInternal           = "internal"
)

// billingError maps a typed billing error to an HTTP status and category.
func billingError(c *fiber.Ctx, err error) error {
	var cooldown *billing.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":           ErrCategoryTooEarly,
			"message":         "rejection is not allowed yet",
			"hours_remaining": cooldown.HoursRemaining,
		})
	case errors.Is(err, billing.ErrUnresolvableAmount):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   ErrCategoryUnresolvableAmount,
			"message": "amount does not match any plan",
		})
	case errors.Is(err, billing.ErrGatewayCaptureFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   ErrCategoryPaymentFailed,
			"message": "payment could not be completed",
		})
	case errors.Is(err, billing.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   ErrCategoryInvalidTransition,
			"message": "submission was already reviewed",
		})
	case errors.Is(err, billing.ErrMockTransactionDisabled):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   ErrCategoryInvalid,
			"message": "a transaction id is required",
		})
	case errors.Is(err, billing.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   ErrCategoryNotFound,
			"message": "order not found",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   ErrCategoryNotFound,
			"message": "not found",
		})
	case errors.Is(err, billing.ErrStorageTransient):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   ErrCategoryUnavailable,
			"message": "please try again shortly",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   ErrCategoryInternal,
			"message": "something went wrong",
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   ErrCategoryInvalid,
		"message": message,
	})
}
