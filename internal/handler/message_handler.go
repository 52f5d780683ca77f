package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/service"
	"github.com/ksmp-platform/contact-api/internal/utils"
)

// MessageHandler wires direct message endpoints including the websocket upgrade.
type MessageHandler struct {
	service service.MessageService
	logger  zerolog.Logger
}

// NewMessageHandler creates a message handler instance.
func NewMessageHandler(service service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		logger:  logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds message routes under the provided router group.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Post("", h.send)
	router.Patch("/:id/read", h.markRead)
}

func (h *MessageHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	conversationID, err := strconv.ParseUint(strings.TrimSpace(conn.Query("conversation_id")), 10, 64)
	if err != nil || conversationID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "conversation_id required"))
		_ = conn.Close()
		return
	}

	role := fmt.Sprint(conn.Locals("user_role"))
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.StreamOptions{
		UserID:         userID,
		Role:           role,
		ConversationID: uint(conversationID),
		CorrelationID:  correlation,
		Context:        baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Uint64("conversation_id", conversationID).Msg("message websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Uint64("conversation_id", conversationID).Msg("message websocket disconnected")
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	// The authenticated user is always the sender.
	payload.Sender.ID = userID
	if role := userRoleFromContext(c); role != "" && payload.Sender.Role == "" {
		payload.Sender.Role = role
	}

	message, err := h.service.Send(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrEmptyMessage):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSenderBlocked),
			errors.Is(err, service.ErrDirectMessagesDisabled):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to send message")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to send message")
		}
	}

	return utils.SendCreated(c, "message sent", message)
}

func (h *MessageHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}

	message, err := h.service.MarkRead(requestContext(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "message not found")
		}
		h.logger.Error().Err(err).Uint("message_id", id).Msg("failed to mark message read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark message read")
	}

	return utils.SendSuccess(c, "message updated", message)
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			return fmt.Sprintf("%d", uint(v))
		case uint:
			return fmt.Sprintf("%d", v)
		case int:
			return fmt.Sprintf("%d", v)
		}
	}
	return ""
}
