package ledger

import (
	"strconv"

	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

var ledgerStatusMap = map[string]int{
	"Crop type is required":              400,
	"Weight must be a positive number":   400,
	"Farmer address is required":         400,
	"From and to addresses are required": 400,
	"Batch not found":                    404,
	"Handoff not found":                  404,
	"Handoff already confirmed":          400,
}

func ledgerError(c *fiber.Ctx, err error) error {
	if code, ok := ledgerStatusMap[err.Error()]; ok {
		return response.Error(c, err.Error(), code)
	}
	return response.Error(c, "Internal Server Error", 500)
}

func parseBatchID(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// CreateBatch POST /batch
func (h *Handlers) CreateBatch(c *fiber.Ctx) error {
	var body struct {
		CropType         string  `json:"cropType"`
		Weight           float64 `json:"weight"`
		FarmGPS          string  `json:"farmGps"`
		FarmingPractices string  `json:"farmingPractices"`
		OrganicCertID    string  `json:"organicCertId"`
		FarmerAddr       string  `json:"farmerAddr"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400)
	}

	batch, err := h.Service.CreateBatch(c.Context(), CreateBatchInput{
		CropType:         body.CropType,
		Weight:           body.Weight,
		FarmGPS:          body.FarmGPS,
		FarmingPractices: body.FarmingPractices,
		OrganicCertID:    body.OrganicCertID,
		FarmerAddr:       body.FarmerAddr,
	})
	if err != nil {
		return ledgerError(c, err)
	}

	return response.Created(c, fiber.Map{
		"batchId": batch.BatchID,
		"message": "Batch registered successfully",
	})
}

// AppendCheckpoint POST /checkpoint
func (h *Handlers) AppendCheckpoint(c *fiber.Ctx) error {
	var body struct {
		BatchID     uint64  `json:"batchId"`
		GPS         string  `json:"gps"`
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
		HandlerType string  `json:"handlerType"`
		Notes       string  `json:"notes"`
		PhotoHash   string  `json:"photoHash"`
		Timestamp   int64   `json:"timestamp"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400)
	}
	if body.BatchID == 0 {
		return response.Error(c, "Missing batchId", 400)
	}

	index, err := h.Service.AppendCheckpoint(c.Context(), body.BatchID, CheckpointInput{
		GPS:          body.GPS,
		TemperatureC: body.Temperature,
		Humidity:     body.Humidity,
		HandlerType:  body.HandlerType,
		Notes:        body.Notes,
		PhotoHash:    body.PhotoHash,
		Timestamp:    body.Timestamp,
	})
	if err != nil {
		return ledgerError(c, err)
	}

	return response.Created(c, fiber.Map{
		"index":   index,
		"message": "Checkpoint logged successfully",
	})
}

// InitiateHandoff POST /handoff/initiate
func (h *Handlers) InitiateHandoff(c *fiber.Ctx) error {
	var body struct {
		BatchID     uint64   `json:"batchId"`
		FromAddr    string   `json:"fromAddr"`
		ToAddr      string   `json:"toAddr"`
		HandoffType string   `json:"handoffType"`
		PhotoHashes []string `json:"photoHashes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400)
	}
	if body.BatchID == 0 {
		return response.Error(c, "Missing batchId", 400)
	}

	index, err := h.Service.InitiateHandoff(c.Context(), body.BatchID, HandoffInput{
		FromAddr:    body.FromAddr,
		ToAddr:      body.ToAddr,
		HandoffType: body.HandoffType,
		PhotoHashes: body.PhotoHashes,
	})
	if err != nil {
		return ledgerError(c, err)
	}

	return response.Created(c, fiber.Map{
		"index":   index,
		"message": "Handoff initiated successfully",
	})
}

// ConfirmHandoff POST /handoff/confirm
func (h *Handlers) ConfirmHandoff(c *fiber.Ctx) error {
	var body struct {
		BatchID     uint64 `json:"batchId"`
		Index       int    `json:"index"`
		ConfirmedAt int64  `json:"confirmedAt"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400)
	}
	if body.BatchID == 0 || body.Index == 0 {
		return response.Error(c, "Missing batchId or index", 400)
	}

	if err := h.Service.ConfirmHandoff(c.Context(), body.BatchID, body.Index, body.ConfirmedAt); err != nil {
		return ledgerError(c, err)
	}

	return response.OK(c, fiber.Map{"message": "Handoff confirmed successfully"})
}

// GetBatch GET /batch/:id
func (h *Handlers) GetBatch(c *fiber.Ctx) error {
	id, ok := parseBatchID(c.Params("id"))
	if !ok {
		return response.Error(c, "Invalid batch id", 400)
	}

	batch, err := h.Service.GetBatch(c.Context(), id)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.OK(c, fiber.Map{"batch": batch})
}

// GetJourney GET /batch/:id/journey
func (h *Handlers) GetJourney(c *fiber.Ctx) error {
	id, ok := parseBatchID(c.Params("id"))
	if !ok {
		return response.Error(c, "Invalid batch id", 400)
	}

	journey, err := h.Service.GetJourney(c.Context(), id)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.OK(c, journey)
}

// GetFarmerBatches GET /farmer/:addr/batches
func (h *Handlers) GetFarmerBatches(c *fiber.Ctx) error {
	addr := c.Params("addr")
	if addr == "" {
		return response.Error(c, "Farmer address is required", 400)
	}

	batches, err := h.Service.GetFarmerBatches(c.Context(), addr)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.OK(c, fiber.Map{"batches": batches})
}
