package reputation

import (
	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// GetReputation GET /farmer/:addr/reputation
func (h *Handlers) GetReputation(c *fiber.Ctx) error {
	addr := c.Params("addr")
	if addr == "" {
		return response.Error(c, "Farmer address is required", 400)
	}

	rep, err := h.Service.Get(c.Context(), addr)
	if err != nil {
		if err.Error() == "Farmer not found" {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"reputation": rep})
}

// GetPayments GET /farmer/:addr/payments
func (h *Handlers) GetPayments(c *fiber.Ctx) error {
	addr := c.Params("addr")
	if addr == "" {
		return response.Error(c, "Farmer address is required", 400)
	}

	payments, err := h.Service.Payments(c.Context(), addr)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"payments": payments})
}
