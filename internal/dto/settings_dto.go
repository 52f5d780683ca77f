package dto

import (
	"time"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ContactSettingsUpdateRequest carries a partial update of a user's contact
// settings. Nil fields are left untouched.
type ContactSettingsUpdateRequest struct {
	AllowContactRequests *bool                          `json:"allow_contact_requests"`
	AllowDirectMessages  *bool                          `json:"allow_direct_messages"`
	AllowMeetingRequests *bool                          `json:"allow_meeting_requests"`
	RoleAccess           map[models.ContactRole]bool    `json:"role_access"`
	PrivacyLevel         *string                        `json:"privacy_level" validate:"omitempty,oneof=public private restricted confidential"`
	ContactPreferences   map[string]interface{}         `json:"contact_preferences"`
	NotificationSettings map[string]interface{}         `json:"notification_settings"`
	Timezone             *string                        `json:"timezone" validate:"omitempty,max=64"`
}

// ContactSettingsResponse is the serialized representation of contact settings.
type ContactSettingsResponse struct {
	UserID               string                      `json:"user_id"`
	AllowContactRequests bool                        `json:"allow_contact_requests"`
	AllowDirectMessages  bool                        `json:"allow_direct_messages"`
	AllowMeetingRequests bool                        `json:"allow_meeting_requests"`
	RoleAccess           map[models.ContactRole]bool `json:"role_access,omitempty"`
	PrivacyLevel         models.PrivacyLevel         `json:"privacy_level"`
	BlockedUsers         []string                    `json:"blocked_users"`
	WhitelistedUsers     []string                    `json:"whitelisted_users"`
	ContactPreferences   map[string]interface{}      `json:"contact_preferences,omitempty"`
	NotificationSettings map[string]interface{}      `json:"notification_settings,omitempty"`
	Timezone             string                      `json:"timezone"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// NewContactSettingsResponse converts a settings model into a DTO.
func NewContactSettingsResponse(model models.ContactSettings) ContactSettingsResponse {
	blocked := model.BlockedUsers.Data()
	if blocked == nil {
		blocked = []string{}
	}
	whitelisted := model.WhitelistedUsers.Data()
	if whitelisted == nil {
		whitelisted = []string{}
	}

	return ContactSettingsResponse{
		UserID:               model.UserID,
		AllowContactRequests: model.AllowContactRequests,
		AllowDirectMessages:  model.AllowDirectMessages,
		AllowMeetingRequests: model.AllowMeetingRequests,
		RoleAccess:           model.RoleAccess.Data(),
		PrivacyLevel:         model.PrivacyLevel,
		BlockedUsers:         blocked,
		WhitelistedUsers:     whitelisted,
		ContactPreferences:   model.ContactPreferences,
		NotificationSettings: model.NotificationSettings,
		Timezone:             model.Timezone,
		UpdatedAt:            model.UpdatedAt,
	}
}
