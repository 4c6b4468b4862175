package verification

import (
	"context"
	"encoding/json"
	"strconv"

	"agritrace-backend/internal/payment"
	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
	Gateway *payment.Gateway
}

func (h *Handlers) accepts() []payment.Requirements {
	return []payment.Requirements{h.Gateway.Requirements}
}

// Probe GET /verify — probe phase of the payment protocol. Without a
// proof header the response is the 402 quote; with one it is a notice to
// use POST.
func (h *Handlers) Probe(c *fiber.Ctx) error {
	if c.Get(payment.HeaderName) == "" {
		return response.PaymentRequired(c, "Payment required: missing "+payment.HeaderName+" header", h.accepts())
	}
	return response.OK(c, fiber.Map{
		"message": "Use POST /verify with a batchAsaId to run a verification",
	})
}

// Verify POST /verify — paid phase. Validates the proof, runs the
// verification, settles, and returns the record plus the receipt.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	var body struct {
		BatchAsaID   uint64                     `json:"batchAsaId"`
		Evidence     map[string]json.RawMessage `json:"evidence"`
		VerifierAddr string                     `json:"verifierAddr"`
		Timestamp    int64                      `json:"timestamp"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400)
	}
	if body.BatchAsaID == 0 {
		return response.Error(c, "Missing batchAsaId", 400)
	}

	ev, err := ParseEvidence(body.Evidence)
	if err != nil {
		return response.Error(c, err.Error(), 400)
	}

	header := c.Get(payment.HeaderName)
	result, receipt, err := h.Gateway.Execute(c.Context(), header, func(ctx context.Context) (interface{}, error) {
		return h.Service.Verify(ctx, body.BatchAsaID, ev, body.VerifierAddr, body.Timestamp)
	})
	if err != nil {
		if pe, ok := payment.IsPaymentError(err); ok {
			return response.PaymentRequired(c, pe.Msg, h.accepts())
		}
		return response.Error(c, "Internal Server Error", 500)
	}

	return response.OK(c, fiber.Map{
		"verification": result,
		"payment":      receipt,
	})
}

// Status GET /status/:batchAsaId — public read of the stored record.
func (h *Handlers) Status(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("batchAsaId"), 10, 64)
	if err != nil || id == 0 {
		return response.Error(c, "Invalid batchAsaId", 400)
	}

	rec, err := h.Service.GetRecord(c.Context(), id)
	if err != nil {
		if err.Error() == "Verification not found" {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"verification": rec})
}
