package dto

import (
	"time"

	"github.com/ksmp-platform/contact-api/internal/models"
)

// MessageSendRequest is the payload to send a direct message. The
// conversation is resolved (or created) from the sender/recipient pair.
type MessageSendRequest struct {
	Sender      ParticipantRef             `json:"sender" validate:"required"`
	Recipient   ParticipantRef             `json:"recipient" validate:"required"`
	Subject     string                     `json:"subject" validate:"omitempty,max=255"`
	MessageType string                     `json:"message_type" validate:"omitempty,oneof=text image file meeting_invite system_message notification"`
	Content     string                     `json:"content" validate:"required,min=1,max=8000"`
	Priority    string                     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string                     `json:"category" validate:"omitempty,max=64"`
	Attachments []models.MessageAttachment `json:"attachments" validate:"omitempty,max=10"`
}

// MessageResponse is the serialized representation of a conversation message.
type MessageResponse struct {
	ID             uint                       `json:"id"`
	ConversationID uint                       `json:"conversation_id"`
	Sender         ParticipantRef             `json:"sender"`
	Recipient      ParticipantRef             `json:"recipient"`
	MessageType    models.MessageType         `json:"message_type"`
	Content        string                     `json:"content"`
	IsRead         bool                       `json:"is_read"`
	ReadAt         *time.Time                 `json:"read_at,omitempty"`
	Priority       models.Priority            `json:"priority"`
	Category       string                     `json:"category,omitempty"`
	Attachments    []models.MessageAttachment `json:"attachments,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(model models.ContactMessage) MessageResponse {
	return MessageResponse{
		ID:             model.ID,
		ConversationID: model.ConversationID,
		Sender: ParticipantRef{
			ID:   model.SenderID,
			Name: model.SenderName,
			Role: string(model.SenderRole),
		},
		Recipient: ParticipantRef{
			ID:   model.RecipientID,
			Name: model.RecipientName,
			Role: string(model.RecipientRole),
		},
		MessageType: model.MessageType,
		Content:     model.Content,
		IsRead:      model.IsRead,
		ReadAt:      model.ReadAt,
		Priority:    model.Priority,
		Category:    model.Category,
		Attachments: model.Attachments.Data(),
		CreatedAt:   model.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of message models into DTOs.
func NewMessageResponseSlice(messages []models.ContactMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// ConversationResponse summarises a conversation for the list view from the
// perspective of one participant.
type ConversationResponse struct {
	ID                 uint                      `json:"id"`
	ReferenceID        string                    `json:"reference_id"`
	Counterpart        ParticipantRef            `json:"counterpart"`
	ConversationType   models.ConversationType   `json:"conversation_type"`
	Subject            string                    `json:"subject,omitempty"`
	Status             models.ConversationStatus `json:"status"`
	LastMessageAt      *time.Time                `json:"last_message_at,omitempty"`
	LastMessageContent string                    `json:"last_message_content,omitempty"`
	LastMessageSender  string                    `json:"last_message_sender,omitempty"`
	UnreadCount        int                       `json:"unread_count"`
	IsArchived         bool                      `json:"is_archived"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// NewConversationResponse converts a conversation model into a DTO scoped to
// the viewing participant.
func NewConversationResponse(model models.ContactConversation, viewerID string) ConversationResponse {
	counterpart := ParticipantRef{
		ID:    model.Participant2ID,
		Name:  model.Participant2Name,
		Email: model.Participant2Email,
		Role:  string(model.Participant2Role),
	}
	if model.Slot(viewerID) == 2 {
		counterpart = ParticipantRef{
			ID:    model.Participant1ID,
			Name:  model.Participant1Name,
			Email: model.Participant1Email,
			Role:  string(model.Participant1Role),
		}
	}

	return ConversationResponse{
		ID:                 model.ID,
		ReferenceID:        model.ReferenceID,
		Counterpart:        counterpart,
		ConversationType:   model.ConversationType,
		Subject:            model.Subject,
		Status:             model.Status,
		LastMessageAt:      model.LastMessageAt,
		LastMessageContent: model.LastMessageContent,
		LastMessageSender:  model.LastMessageSender,
		UnreadCount:        model.UnreadFor(viewerID),
		IsArchived:         model.ArchivedFor(viewerID),
		CreatedAt:          model.CreatedAt,
	}
}

// NewConversationResponseSlice converts conversations into viewer-scoped DTOs.
func NewConversationResponseSlice(conversations []models.ContactConversation, viewerID string) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		out = append(out, NewConversationResponse(conversation, viewerID))
	}
	return out
}
