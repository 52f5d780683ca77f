package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/service"
	"github.com/ksmp-platform/contact-api/internal/utils"
)

// SettingsHandler exposes per-user contact and privacy settings.
type SettingsHandler struct {
	service service.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(service service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register wires the settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("", h.get)
	router.Put("", h.update)
	router.Post("/block/:userId", h.block)
	router.Delete("/block/:userId", h.unblock)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	settings, _, err := h.service.Get(requestContext(c), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load contact settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load contact settings")
	}

	return utils.SendSuccess(c, "contact settings", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ContactSettingsUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	settings, err := h.service.Upsert(requestContext(c), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to update contact settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update contact settings")
	}

	return utils.SendSuccess(c, "contact settings updated", settings)
}

func (h *SettingsHandler) block(c *fiber.Ctx) error {
	return h.mutateBlockList(c, h.service.Block, "user blocked")
}

func (h *SettingsHandler) unblock(c *fiber.Ctx) error {
	return h.mutateBlockList(c, h.service.Unblock, "user unblocked")
}

func (h *SettingsHandler) mutateBlockList(c *fiber.Ctx, mutate func(ctx context.Context, userID, targetID string) (dto.ContactSettingsResponse, error), message string) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	targetID := strings.TrimSpace(c.Params("userId"))
	if targetID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "target user id required")
	}
	if targetID == userID {
		return utils.SendError(c, fiber.StatusBadRequest, "cannot block yourself")
	}

	settings, err := mutate(requestContext(c), userID, targetID)
	if err != nil {
		if errors.Is(err, service.ErrSettingsNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "contact settings not found")
		}
		h.logger.Error().Err(err).Str("user_id", userID).Str("target_id", targetID).Msg("failed to update block list")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update block list")
	}

	return utils.SendSuccess(c, message, settings)
}
