package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/service"
	"github.com/ksmp-platform/contact-api/internal/utils"
)

// ConversationHandler exposes the conversation inbox endpoints.
type ConversationHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
	logger        zerolog.Logger
}

// NewConversationHandler constructs a conversation handler.
func NewConversationHandler(conversations service.ConversationService, messages service.MessageService, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		logger:        logger.With().Str("component", "conversation_handler").Logger(),
	}
}

// Register wires the conversation routes.
func (h *ConversationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/unread-count", h.unreadCount)
	router.Get("/:id/messages", h.transcript)
	router.Patch("/:id/archive", h.archive)
	router.Patch("/:id/unarchive", h.unarchive)
	router.Patch("/:id/read", h.markRead)
}

func (h *ConversationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversations, err := h.conversations.List(requestContext(c), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list conversations")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list conversations")
	}

	return utils.SendSuccess(c, "conversations", conversations)
}

func (h *ConversationHandler) unreadCount(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	total, err := h.conversations.UnreadTotal(requestContext(c), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to compute unread total")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute unread total")
	}

	return utils.SendSuccess(c, "unread count", fiber.Map{"unread": total})
}

func (h *ConversationHandler) transcript(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	messages, err := h.messages.List(requestContext(c), userID, id)
	if err != nil {
		return h.conversationError(c, err, id, "failed to load conversation transcript")
	}

	return utils.SendSuccess(c, "conversation messages", messages)
}

func (h *ConversationHandler) archive(c *fiber.Ctx) error {
	return h.mutate(c, h.conversations.Archive, "conversation archived")
}

func (h *ConversationHandler) unarchive(c *fiber.Ctx) error {
	return h.mutate(c, h.conversations.Unarchive, "conversation unarchived")
}

func (h *ConversationHandler) markRead(c *fiber.Ctx) error {
	return h.mutate(c, h.conversations.MarkRead, "conversation marked read")
}

func (h *ConversationHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error), message string) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	conversation, err := op(requestContext(c), userID, id)
	if err != nil {
		return h.conversationError(c, err, id, "failed to update conversation")
	}

	return utils.SendSuccess(c, message, conversation)
}

func (h *ConversationHandler) conversationError(c *fiber.Ctx, err error, id uint, fallback string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		return utils.SendError(c, fiber.StatusForbidden, "not a participant of this conversation")
	default:
		h.logger.Error().Err(err).Uint("conversation_id", id).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
