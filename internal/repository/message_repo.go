package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactMessageRepository persists conversation messages. Messages are
// immutable once created except for their read state.
type ContactMessageRepository interface {
	Create(ctx context.Context, message *models.ContactMessage) error
	FindByID(ctx context.Context, id uint) (models.ContactMessage, error)
	ListByConversation(ctx context.Context, conversationID uint) ([]models.ContactMessage, error)
	LatestByConversation(ctx context.Context, conversationID uint) (models.ContactMessage, error)
	MarkRead(ctx context.Context, id uint) (models.ContactMessage, error)
}

type contactMessageRepository struct {
	db *gorm.DB
}

// NewContactMessageRepository constructs a message repository backed by GORM.
func NewContactMessageRepository(db *gorm.DB) ContactMessageRepository {
	return &contactMessageRepository{db: db}
}

func (r *contactMessageRepository) Create(ctx context.Context, message *models.ContactMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *contactMessageRepository) FindByID(ctx context.Context, id uint) (models.ContactMessage, error) {
	var message models.ContactMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.ContactMessage{}, err
	}
	return message, nil
}

// ListByConversation returns the full transcript in chronological order.
func (r *contactMessageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]models.ContactMessage, error) {
	var messages []models.ContactMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *contactMessageRepository) LatestByConversation(ctx context.Context, conversationID uint) (models.ContactMessage, error) {
	var message models.ContactMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		return models.ContactMessage{}, err
	}
	return message, nil
}

// MarkRead sets the read flag once; calling it on an already-read message
// returns the stored record unchanged.
func (r *contactMessageRepository) MarkRead(ctx context.Context, id uint) (models.ContactMessage, error) {
	var message models.ContactMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.ContactMessage{}, err
	}

	if message.IsRead {
		return message, nil
	}

	now := time.Now().UTC()
	message.IsRead = true
	message.ReadAt = &now
	if err := r.db.WithContext(ctx).Save(&message).Error; err != nil {
		return models.ContactMessage{}, err
	}

	return message, nil
}
