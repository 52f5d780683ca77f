package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/service"
	"github.com/ksmp-platform/contact-api/internal/utils"
)

// RequestHandler exposes the contact request lifecycle endpoints.
type RequestHandler struct {
	service service.RequestService
	logger  zerolog.Logger
}

// NewRequestHandler constructs a request handler.
func NewRequestHandler(service service.RequestService, logger zerolog.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		logger:  logger.With().Str("component", "request_handler").Logger(),
	}
}

// Register wires the contact request routes.
func (h *RequestHandler) Register(router fiber.Router) {
	router.Post("", h.send)
	router.Get("", h.list)
	router.Patch("/:id/respond", h.respond)
}

func (h *RequestHandler) send(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ContactRequestCreate
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	// The authenticated user is always the requester.
	payload.Requester.ID = userID
	if role := userRoleFromContext(c); role != "" && payload.Requester.Role == "" {
		payload.Requester.Role = role
	}

	request, err := h.service.Send(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSenderBlocked),
			errors.Is(err, service.ErrContactRequestsDisabled):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to send contact request")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to send contact request")
		}
	}

	return utils.SendCreated(c, "contact request sent", request)
}

func (h *RequestHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	query := dto.ContactRequestListQuery{Search: c.Query("search")}
	if raw := c.Query("status"); raw != "" {
		query.Statuses = splitAndTrim(raw)
	}
	if raw := c.Query("priority"); raw != "" {
		query.Priorities = splitAndTrim(raw)
	}
	if raw := c.Query("category"); raw != "" {
		query.Categories = splitAndTrim(raw)
	}
	if raw := c.Query("request_type"); raw != "" {
		query.Types = splitAndTrim(raw)
	}

	requests, err := h.service.List(requestContext(c), userID, query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list contact requests")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list contact requests")
	}

	return utils.SendSuccess(c, "contact requests", requests)
}

func (h *RequestHandler) respond(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request id")
	}

	var payload dto.ContactRequestRespond
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	request, err := h.service.Respond(requestContext(c), id, userID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRequestNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "contact request not found")
		case errors.Is(err, service.ErrNotRequestTarget):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidRequestTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Uint("request_id", id).Msg("failed to respond to contact request")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to respond to contact request")
		}
	}

	return utils.SendSuccess(c, "contact request updated", request)
}
