package dto

import (
	"time"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// ParticipantRef identifies one side of a contact interaction.
type ParticipantRef struct {
	ID    string `json:"id" validate:"required,max=64"`
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Role  string `json:"role" validate:"omitempty,oneof=investor mentor startup student admin"`
}

// ContactRequestCreate is the payload to send a new contact request.
type ContactRequestCreate struct {
	Requester   ParticipantRef `json:"requester" validate:"required"`
	Target      ParticipantRef `json:"target" validate:"required"`
	RequestType string         `json:"request_type" validate:"omitempty,oneof=general_inquiry meeting_request collaboration_request investment_inquiry mentorship_request partnership_request support_request feedback_request other"`
	Subject     string         `json:"subject" validate:"required,min=3,max=255"`
	Message     string         `json:"message" validate:"required,min=1,max=5000"`
	Priority    string         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string         `json:"category" validate:"omitempty,max=64"`
}

// ContactRequestRespond carries the responder's decision on a pending request.
type ContactRequestRespond struct {
	Status          string `json:"status" validate:"required,oneof=approved rejected"`
	ResponseMessage string `json:"response_message" validate:"omitempty,max=5000"`
}

// ContactRequestListQuery filters the inbound request list.
type ContactRequestListQuery struct {
	Statuses   []string `query:"status" validate:"omitempty,dive,oneof=pending approved rejected expired cancelled completed"`
	Priorities []string `query:"priority" validate:"omitempty,dive,oneof=low medium high urgent"`
	Categories []string `query:"category"`
	Types      []string `query:"request_type"`
	Search     string   `query:"search" validate:"omitempty,max=255"`
}

// ContactRequestResponse is the serialized representation of a contact request.
type ContactRequestResponse struct {
	ID              uint                 `json:"id"`
	Requester       ParticipantRef       `json:"requester"`
	Target          ParticipantRef       `json:"target"`
	RequestType     models.RequestType   `json:"request_type"`
	Subject         string               `json:"subject"`
	Message         string               `json:"message"`
	Status          models.RequestStatus `json:"status"`
	Priority        models.Priority      `json:"priority"`
	Category        string               `json:"category,omitempty"`
	ResponseMessage string               `json:"response_message,omitempty"`
	RespondedAt     *time.Time           `json:"responded_at,omitempty"`
	RespondedBy     string               `json:"responded_by,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// NewContactRequestResponse converts a model into a DTO.
func NewContactRequestResponse(model models.ContactRequest) ContactRequestResponse {
	return ContactRequestResponse{
		ID: model.ID,
		Requester: ParticipantRef{
			ID:    model.RequesterID,
			Name:  model.RequesterName,
			Email: model.RequesterEmail,
			Role:  string(model.RequesterRole),
		},
		Target: ParticipantRef{
			ID:    model.TargetID,
			Name:  model.TargetName,
			Email: model.TargetEmail,
			Role:  string(model.TargetRole),
		},
		RequestType:     model.RequestType,
		Subject:         model.Subject,
		Message:         model.Message,
		Status:          model.Status,
		Priority:        model.Priority,
		Category:        model.Category,
		ResponseMessage: model.ResponseMessage,
		RespondedAt:     model.RespondedAt,
		RespondedBy:     model.RespondedBy,
		CreatedAt:       model.CreatedAt,
	}
}

// NewContactRequestResponseSlice converts a slice of models into DTOs.
func NewContactRequestResponseSlice(requests []models.ContactRequest) []ContactRequestResponse {
	out := make([]ContactRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, NewContactRequestResponse(request))
	}
	return out
}
