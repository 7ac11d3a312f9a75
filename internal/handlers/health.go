package handlers

import (
	"context"
	"time"

	"finops/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const healthTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database and redis reachability.
type HealthHandler struct {
	db      pinger
	redis   *redis.Client
	version string
}

func NewHealthHandler(db pinger, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, version: version}
}

// HealthCheck handles GET /health. The database is required; redis is
// reported as disabled when not configured.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := fiber.StatusOK
	database := "connected"
	if err := h.db.Ping(ctx); err != nil {
		database = "unavailable"
		status = fiber.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "connected"
		if err := cache.Ping(ctx, h.redis); err != nil {
			redisStatus = "unavailable"
		}
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  state,
		"version": h.version,
		"services": fiber.Map{
			"database": database,
			"redis":    redisStatus,
		},
	})
}
