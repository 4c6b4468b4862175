package response

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the standardized error JSON shape. Every error response
// carries a plain "error" string; payment errors additionally carry the
// machine-readable requirements under "accepts".
type ErrorBody struct {
	Error   string      `json:"error"`
	Accepts interface{} `json:"accepts,omitempty"`
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int) error {
	return c.Status(statusCode).JSON(ErrorBody{Error: message})
}

// PaymentRequired sends 402 with the error text and the payment
// requirements the caller can satisfy to retry.
func PaymentRequired(c *fiber.Ctx, message string, accepts interface{}) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(ErrorBody{
		Error:   message,
		Accepts: accepts,
	})
}

// OK sends a 200 response with the given payload.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

// Created sends a 201 response with the given payload.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}
