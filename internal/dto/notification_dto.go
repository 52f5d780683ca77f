package dto

import (
	"time"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// NotificationResponse represents an inbox notification returned to clients.
type NotificationResponse struct {
	ID             uint                    `json:"id"`
	UserID         string                  `json:"user_id"`
	Type           models.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	RelatedID      uint                    `json:"related_id,omitempty"`
	RelatedType    string                  `json:"related_type,omitempty"`
	IsRead         bool                    `json:"is_read"`
	ReadAt         *time.Time              `json:"read_at,omitempty"`
	Priority       models.Priority         `json:"priority"`
	Category       string                  `json:"category,omitempty"`
	ActionRequired bool                    `json:"action_required"`
	ActionURL      string                  `json:"action_url,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// NewNotificationResponse converts a notification model to a DTO.
func NewNotificationResponse(model models.ContactNotification) NotificationResponse {
	return NotificationResponse{
		ID:             model.ID,
		UserID:         model.UserID,
		Type:           model.Type,
		Title:          model.Title,
		Message:        model.Message,
		RelatedID:      model.RelatedID,
		RelatedType:    model.RelatedType,
		IsRead:         model.IsRead,
		ReadAt:         model.ReadAt,
		Priority:       model.Priority,
		Category:       model.Category,
		ActionRequired: model.ActionRequired,
		ActionURL:      model.ActionURL,
		CreatedAt:      model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.ContactNotification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// SystemNotificationRequest is the admin payload to push an announcement
// into a user's inbox.
type SystemNotificationRequest struct {
	UserIDs        []string `json:"user_ids" validate:"required,min=1,max=500,dive,required,max=64"`
	Title          string   `json:"title" validate:"required,min=3,max=255"`
	Message        string   `json:"message" validate:"required,min=1,max=2000"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category       string   `json:"category" validate:"omitempty,max=64"`
	ActionRequired bool     `json:"action_required"`
	ActionURL      string   `json:"action_url" validate:"omitempty,url,max=512"`
}
