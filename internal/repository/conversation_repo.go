package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactConversationRepository persists 1:1 conversations. The participant
// pair is unordered: FindByParticipants matches both slot orderings.
//
// The unread counters and last-message fields are a denormalized cache of
// the message table; ResetUnread clears a participant's counter wholesale
// when a conversation is opened. Message-level read flags are the source of
// truth and are never derived back into the counters.
type ContactConversationRepository interface {
	Create(ctx context.Context, conversation *models.ContactConversation) error
	Save(ctx context.Context, conversation *models.ContactConversation) error
	FindByID(ctx context.Context, id uint) (models.ContactConversation, error)
	FindByParticipants(ctx context.Context, userA, userB string) (models.ContactConversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]models.ContactConversation, error)
	ResetUnread(ctx context.Context, id uint, slot int) error
}

type contactConversationRepository struct {
	db *gorm.DB
}

// NewContactConversationRepository constructs a conversation repository backed by GORM.
func NewContactConversationRepository(db *gorm.DB) ContactConversationRepository {
	return &contactConversationRepository{db: db}
}

func (r *contactConversationRepository) Create(ctx context.Context, conversation *models.ContactConversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *contactConversationRepository) Save(ctx context.Context, conversation *models.ContactConversation) error {
	return r.db.WithContext(ctx).Save(conversation).Error
}

func (r *contactConversationRepository) FindByID(ctx context.Context, id uint) (models.ContactConversation, error) {
	var conversation models.ContactConversation
	if err := r.db.WithContext(ctx).First(&conversation, id).Error; err != nil {
		return models.ContactConversation{}, err
	}
	return conversation, nil
}

func (r *contactConversationRepository) FindByParticipants(ctx context.Context, userA, userB string) (models.ContactConversation, error) {
	var conversation models.ContactConversation
	err := r.db.WithContext(ctx).
		Where("(participant1_id = ? AND participant2_id = ?) OR (participant1_id = ? AND participant2_id = ?)",
			userA, userB, userB, userA).
		Where("status <> ?", models.ConversationDeleted).
		First(&conversation).Error
	if err != nil {
		return models.ContactConversation{}, err
	}
	return conversation, nil
}

func (r *contactConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]models.ContactConversation, error) {
	var conversations []models.ContactConversation
	err := r.db.WithContext(ctx).
		Where("(participant1_id = ? AND is_archived1 = ?) OR (participant2_id = ? AND is_archived2 = ?)",
			userID, false, userID, false).
		Where("status <> ?", models.ConversationDeleted).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *contactConversationRepository) ResetUnread(ctx context.Context, id uint, slot int) error {
	column := "unread_count1"
	if slot == 2 {
		column = "unread_count2"
	}
	return r.db.WithContext(ctx).
		Model(&models.ContactConversation{}).
		Where("id = ?", id).
		Update(column, 0).
		Error
}
