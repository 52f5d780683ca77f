package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactRequestFilter narrows the inbound request list for a target user.
type ContactRequestFilter struct {
	TargetID   string
	Statuses   []string
	Priorities []string
	Categories []string
	Types      []string
	Search     string
}

// ContactRequestRepository persists contact requests and their lifecycle.
type ContactRequestRepository interface {
	Create(ctx context.Context, request *models.ContactRequest) error
	Save(ctx context.Context, request *models.ContactRequest) error
	FindByID(ctx context.Context, id uint) (models.ContactRequest, error)
	List(ctx context.Context, filter ContactRequestFilter) ([]models.ContactRequest, error)
}

type contactRequestRepository struct {
	db *gorm.DB
}

// NewContactRequestRepository constructs a request repository backed by GORM.
func NewContactRequestRepository(db *gorm.DB) ContactRequestRepository {
	return &contactRequestRepository{db: db}
}

func (r *contactRequestRepository) Create(ctx context.Context, request *models.ContactRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *contactRequestRepository) Save(ctx context.Context, request *models.ContactRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *contactRequestRepository) FindByID(ctx context.Context, id uint) (models.ContactRequest, error) {
	var request models.ContactRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.ContactRequest{}, err
	}
	return request, nil
}

// priorityOrderExpr ranks priorities in SQL so both postgres and the sqlite
// test driver sort urgent > high > medium > low.
const priorityOrderExpr = "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC, created_at DESC"

func (r *contactRequestRepository) List(ctx context.Context, filter ContactRequestFilter) ([]models.ContactRequest, error) {
	query := r.db.WithContext(ctx).Where("target_id = ?", filter.TargetID)

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", filter.Priorities)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if len(filter.Types) > 0 {
		query = query.Where("request_type IN ?", filter.Types)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(subject) LIKE ? OR LOWER(message) LIKE ? OR LOWER(requester_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var requests []models.ContactRequest
	if err := query.Order(priorityOrderExpr).Find(&requests).Error; err != nil {
		return nil, err
	}

	return requests, nil
}
