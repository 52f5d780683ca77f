package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactNotificationRepository handles persistence for inbox notifications.
type ContactNotificationRepository interface {
	Create(ctx context.Context, notification *models.ContactNotification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ContactNotification, error)
	MarkRead(ctx context.Context, id uint, userID string) (models.ContactNotification, error)
	FindByID(ctx context.Context, id uint) (models.ContactNotification, error)
}

type contactNotificationRepository struct {
	db *gorm.DB
}

// NewContactNotificationRepository constructs a notification repository backed by GORM.
func NewContactNotificationRepository(db *gorm.DB) ContactNotificationRepository {
	return &contactNotificationRepository{db: db}
}

func (r *contactNotificationRepository) Create(ctx context.Context, notification *models.ContactNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *contactNotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ContactNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var notifications []models.ContactNotification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkRead is idempotent: the read timestamp is set on the first call only.
func (r *contactNotificationRepository) MarkRead(ctx context.Context, id uint, userID string) (models.ContactNotification, error) {
	var notification models.ContactNotification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return models.ContactNotification{}, err
	}

	if notification.IsRead {
		return notification, nil
	}

	now := time.Now().UTC()
	notification.IsRead = true
	notification.ReadAt = &now
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.ContactNotification{}, err
	}

	return notification, nil
}

func (r *contactNotificationRepository) FindByID(ctx context.Context, id uint) (models.ContactNotification, error) {
	var notification models.ContactNotification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.ContactNotification{}, err
	}
	return notification, nil
}
