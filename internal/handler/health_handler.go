package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ksmp-platform/contact-api/internal/config"
	"github.com/ksmp-platform/contact-api/internal/utils"
)

// HealthResponse reports liveness information for the service.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck returns a liveness probe handler.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
