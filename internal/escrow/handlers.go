package escrow

import (
	"strconv"

	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

var escrowStatusMap = map[string]int{
	"Buyer address is required":            400,
	"Amount must be a positive number":     400,
	"Batch not found":                      404,
	"Escrow not found":                     404,
	"Escrow already exists for this batch": 400,
	"Escrow already released":              400,
}

func escrowError(c *fiber.Ctx, err error) error {
	if code, ok := escrowStatusMap[err.Error()]; ok {
		return response.Error(c, err.Error(), code)
	}
	return response.Error(c, "Internal Server Error", 500)
}

func parseID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	return id, err == nil && id != 0
}

// Fund POST /batch/:id/escrow/fund
func (h *Handlers) Fund(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid batch id", 400)
	}

	var body struct {
		BuyerAddr string `json:"buyerAddr"`
		Amount    int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400)
	}

	esc, err := h.Service.Fund(c.Context(), id, body.BuyerAddr, body.Amount)
	if err != nil {
		return escrowError(c, err)
	}
	return response.Created(c, fiber.Map{
		"escrow":  esc,
		"message": "Escrow funded successfully",
	})
}

// Release POST /batch/:id/escrow/release
func (h *Handlers) Release(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid batch id", 400)
	}

	var body struct {
		TxRef string `json:"txRef"`
	}
	_ = c.BodyParser(&body)

	esc, err := h.Service.Release(c.Context(), id, body.TxRef)
	if err != nil {
		return escrowError(c, err)
	}
	return response.OK(c, fiber.Map{
		"escrow":  esc,
		"message": "Escrow released to farmer",
	})
}
