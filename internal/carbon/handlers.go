package carbon

import (
	"strconv"

	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// GetCarbon GET /batch/:id/carbon — recomputes and returns the record.
func (h *Handlers) GetCarbon(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return response.Error(c, "Invalid batch id", 400)
	}

	record, err := h.Service.Calculate(c.Context(), id)
	if err != nil {
		if err.Error() == "Batch not found" {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"carbon": record})
}
