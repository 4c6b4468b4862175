package health

import (
	"context"

	"agritrace-backend/internal/middleware"
	"agritrace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	Rdb            *redis.Client
	DB             *gorm.DB
	FacilitatorURL string
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	return response.OK(c, Collect(context.Background(), h.Rdb, h.DB, h.FacilitatorURL))
}

// Reset GET /health/reset — clears the traffic counters. Admin-key
// guarded at the route level.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if h.Rdb == nil {
		return response.Error(c, "Redis not configured", 500)
	}
	ctx := context.Background()
	keys := []string{
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
		middleware.KeyErrorLog,
	}
	if err := h.Rdb.Del(ctx, keys...).Err(); err != nil {
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"message": "Health stats reset"})
}

// Errors GET /health/errors — recent error log entries. Admin-key
// guarded at the route level.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Rdb == nil {
		return response.Error(c, "Redis not configured", 500)
	}
	entries, err := h.Rdb.LRange(context.Background(), middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return response.Error(c, "Internal Server Error", 500)
	}
	return response.OK(c, fiber.Map{"errors": entries})
}
