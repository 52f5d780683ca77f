package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/repository"
)

// ErrNotParticipant indicates the acting user is not part of the conversation.
var ErrNotParticipant = errors.New("user is not a participant of the conversation")

const lastMessagePreviewLimit = 512

// ConversationService owns the conversation records: pairing, denormalized
// summaries, per-participant unread counters and archive flags. Other
// components never write conversation fields directly.
type ConversationService interface {
	FindOrCreate(ctx context.Context, a, b dto.ParticipantRef, subject string) (models.ContactConversation, error)
	Get(ctx context.Context, userID string, id uint) (models.ContactConversation, error)
	ApplyMessage(ctx context.Context, message models.ContactMessage) (models.ContactConversation, error)
	List(ctx context.Context, userID string) ([]dto.ConversationResponse, error)
	Archive(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error)
	Unarchive(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error)
	MarkRead(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error)
	UnreadTotal(ctx context.Context, userID string) (int, error)
}

type conversationService struct {
	repo   repository.ContactConversationRepository
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewConversationService constructs the conversation manager.
func NewConversationService(repo repository.ContactConversationRepository, logger zerolog.Logger) ConversationService {
	return &conversationService{
		repo:   repo,
		logger: logger.With().Str("component", "conversation_service").Logger(),
		tracer: otel.Tracer("github.com/ksmp-platform/contact-api/internal/service/conversation"),
	}
}

// FindOrCreate resolves the conversation for an unordered participant pair.
// The lookup matches both slot orderings; at most one active conversation
// exists per pair.
func (s *conversationService) FindOrCreate(ctx context.Context, a, b dto.ParticipantRef, subject string) (models.ContactConversation, error) {
	conversation, err := s.repo.FindByParticipants(ctx, a.ID, b.ID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ContactConversation{}, err
	}

	ctx, span := s.tracer.Start(ctx, "conversations.create", trace.WithAttributes(
		attribute.String("conversation.participant1", a.ID),
		attribute.String("conversation.participant2", b.ID),
	))
	defer span.End()

	conversation = models.ContactConversation{
		ReferenceID:       uuid.NewString(),
		Participant1ID:    a.ID,
		Participant1Name:  a.Name,
		Participant1Email: a.Email,
		Participant1Role:  models.ContactRole(a.Role),
		Participant2ID:    b.ID,
		Participant2Name:  b.Name,
		Participant2Email: b.Email,
		Participant2Role:  models.ContactRole(b.Role),
		ConversationType:  models.ConversationDirect,
		Subject:           subject,
		Status:            models.ConversationActive,
	}

	if err := s.repo.Create(ctx, &conversation); err != nil {
		span.RecordError(err)
		return models.ContactConversation{}, err
	}

	s.logger.Info().
		Uint("conversation_id", conversation.ID).
		Str("participant1", a.ID).
		Str("participant2", b.ID).
		Msg("conversation created")

	return conversation, nil
}

// Get loads a conversation on behalf of a participant.
func (s *conversationService) Get(ctx context.Context, userID string, id uint) (models.ContactConversation, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.ContactConversation{}, err
	}
	if conversation.Slot(userID) == 0 {
		return models.ContactConversation{}, ErrNotParticipant
	}
	return conversation, nil
}

// ApplyMessage refreshes the denormalized summary after a message append and
// increments the recipient's unread counter. The sender's counter is never
// touched.
func (s *conversationService) ApplyMessage(ctx context.Context, message models.ContactMessage) (models.ContactConversation, error) {
	conversation, err := s.repo.FindByID(ctx, message.ConversationID)
	if err != nil {
		return models.ContactConversation{}, err
	}

	senderSlot := conversation.Slot(message.SenderID)
	if senderSlot == 0 {
		return models.ContactConversation{}, ErrNotParticipant
	}

	sentAt := message.CreatedAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	preview := message.Content
	if len(preview) > lastMessagePreviewLimit {
		preview = preview[:lastMessagePreviewLimit]
	}

	conversation.LastMessageAt = &sentAt
	conversation.LastMessageID = message.ID
	conversation.LastMessageContent = preview
	conversation.LastMessageSender = message.SenderID
	if senderSlot == 1 {
		conversation.UnreadCount2++
	} else {
		conversation.UnreadCount1++
	}

	if err := s.repo.Save(ctx, &conversation); err != nil {
		return models.ContactConversation{}, err
	}

	return conversation, nil
}

func (s *conversationService) List(ctx context.Context, userID string) ([]dto.ConversationResponse, error) {
	conversations, err := s.repo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewConversationResponseSlice(conversations, userID), nil
}

func (s *conversationService) Archive(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	return s.setArchived(ctx, userID, id, true)
}

func (s *conversationService) Unarchive(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	return s.setArchived(ctx, userID, id, false)
}

// setArchived flips only the acting participant's own archive flag.
func (s *conversationService) setArchived(ctx context.Context, userID string, id uint, archived bool) (dto.ConversationResponse, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.ConversationResponse{}, err
	}

	switch conversation.Slot(userID) {
	case 1:
		conversation.IsArchived1 = archived
	case 2:
		conversation.IsArchived2 = archived
	default:
		return dto.ConversationResponse{}, ErrNotParticipant
	}

	if err := s.repo.Save(ctx, &conversation); err != nil {
		return dto.ConversationResponse{}, err
	}

	s.logger.Info().
		Uint("conversation_id", id).
		Str("user_id", userID).
		Bool("archived", archived).
		Msg("conversation archive flag updated")

	return dto.NewConversationResponse(conversation, userID), nil
}

// MarkRead resets the calling participant's unread counter. Message-level
// read flags are not derived back into the counter; opening a conversation
// is the only reconciliation point.
func (s *conversationService) MarkRead(ctx context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.ConversationResponse{}, err
	}

	slot := conversation.Slot(userID)
	if slot == 0 {
		return dto.ConversationResponse{}, ErrNotParticipant
	}

	if conversation.UnreadFor(userID) > 0 {
		if err := s.repo.ResetUnread(ctx, id, slot); err != nil {
			return dto.ConversationResponse{}, err
		}
		if slot == 1 {
			conversation.UnreadCount1 = 0
		} else {
			conversation.UnreadCount2 = 0
		}
	}

	return dto.NewConversationResponse(conversation, userID), nil
}

// UnreadTotal sums the user's own unread counters across active,
// non-archived conversations.
func (s *conversationService) UnreadTotal(ctx context.Context, userID string) (int, error) {
	conversations, err := s.repo.ListByParticipant(ctx, userID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, conversation := range conversations {
		total += conversation.UnreadFor(userID)
	}
	return total, nil
}
