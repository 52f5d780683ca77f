package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactSettingsRepository persists per-user contact settings. Exactly one
// record exists per user, enforced by a unique index on user_id.
type ContactSettingsRepository interface {
	Create(ctx context.Context, settings *models.ContactSettings) error
	Save(ctx context.Context, settings *models.ContactSettings) error
	GetByUserID(ctx context.Context, userID string) (models.ContactSettings, error)
}

type contactSettingsRepository struct {
	db *gorm.DB
}

// NewContactSettingsRepository constructs a settings repository backed by GORM.
func NewContactSettingsRepository(db *gorm.DB) ContactSettingsRepository {
	return &contactSettingsRepository{db: db}
}

func (r *contactSettingsRepository) Create(ctx context.Context, settings *models.ContactSettings) error {
	return r.db.WithContext(ctx).Create(settings).Error
}

func (r *contactSettingsRepository) Save(ctx context.Context, settings *models.ContactSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *contactSettingsRepository) GetByUserID(ctx context.Context, userID string) (models.ContactSettings, error) {
	var settings models.ContactSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return models.ContactSettings{}, err
	}
	return settings, nil
}
