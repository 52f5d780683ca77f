package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContactRole identifies the platform role a participant acts under.
type ContactRole string

const (
	RoleInvestor ContactRole = "investor"
	RoleMentor   ContactRole = "mentor"
	RoleStartup  ContactRole = "startup"
	RoleStudent  ContactRole = "student"
	RoleAdmin    ContactRole = "admin"
)

// PrivacyLevel controls how widely a user's contact surface is exposed.
type PrivacyLevel string

const (
	PrivacyPublic       PrivacyLevel = "public"
	PrivacyPrivate      PrivacyLevel = "private"
	PrivacyRestricted   PrivacyLevel = "restricted"
	PrivacyConfidential PrivacyLevel = "confidential"
)

// RequestType categorises why a contact request was sent.
type RequestType string

const (
	RequestGeneralInquiry    RequestType = "general_inquiry"
	RequestMeeting           RequestType = "meeting_request"
	RequestCollaboration     RequestType = "collaboration_request"
	RequestInvestmentInquiry RequestType = "investment_inquiry"
	RequestMentorship        RequestType = "mentorship_request"
	RequestPartnership       RequestType = "partnership_request"
	RequestSupport           RequestType = "support_request"
	RequestFeedback          RequestType = "feedback_request"
	RequestOther             RequestType = "other"
)

// RequestStatus tracks the lifecycle of a contact request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestExpired   RequestStatus = "expired"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// Priority orders requests, messages and notifications for triage.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityRank maps a priority onto an integer for sorting, urgent highest.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// ConversationType distinguishes the kinds of conversations the platform hosts.
type ConversationType string

const (
	ConversationDirect  ConversationType = "direct_message"
	ConversationGroup   ConversationType = "group_message"
	ConversationSupport ConversationType = "support_conversation"
	ConversationMeeting ConversationType = "meeting_discussion"
	ConversationProject ConversationType = "project_discussion"
)

// ConversationStatus tracks the global state of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	ConversationBlocked  ConversationStatus = "blocked"
	ConversationDeleted  ConversationStatus = "deleted"
)

// MessageType categorises the payload carried by a contact message.
type MessageType string

const (
	MessageText          MessageType = "text"
	MessageImage         MessageType = "image"
	MessageFile          MessageType = "file"
	MessageMeetingInvite MessageType = "meeting_invite"
	MessageSystem        MessageType = "system_message"
	MessageNotification  MessageType = "notification"
)

// NotificationType categorises inbox notifications produced by contact events.
type NotificationType string

const (
	NotifyNewContactRequest NotificationType = "new_contact_request"
	NotifyContactApproved   NotificationType = "contact_approved"
	NotifyContactRejected   NotificationType = "contact_rejected"
	NotifyNewMessage        NotificationType = "new_message"
	NotifyMeetingInvite     NotificationType = "meeting_invite"
	NotifySystem            NotificationType = "system_announcement"
)

// ContactSettings stores a user's contact and privacy preferences.
// Exactly one record exists per user; it is created lazily on first write.
type ContactSettings struct {
	ID                   uint                                   `gorm:"primaryKey" json:"id"`
	UserID               string                                 `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	AllowContactRequests bool                                   `gorm:"not null;default:true" json:"allow_contact_requests"`
	AllowDirectMessages  bool                                   `gorm:"not null;default:true" json:"allow_direct_messages"`
	AllowMeetingRequests bool                                   `gorm:"not null;default:true" json:"allow_meeting_requests"`
	RoleAccess           datatypes.JSONType[map[ContactRole]bool] `gorm:"type:json" json:"role_access"`
	PrivacyLevel         PrivacyLevel                           `gorm:"size:32;not null;default:private" json:"privacy_level"`
	BlockedUsers         datatypes.JSONType[[]string]           `gorm:"type:json" json:"blocked_users"`
	WhitelistedUsers     datatypes.JSONType[[]string]           `gorm:"type:json" json:"whitelisted_users"`
	ContactPreferences   datatypes.JSONMap                      `gorm:"type:json" json:"contact_preferences"`
	NotificationSettings datatypes.JSONMap                      `gorm:"type:json" json:"notification_settings"`
	Timezone             string                                 `gorm:"size:64;not null;default:UTC" json:"timezone"`
	CreatedAt            time.Time                              `json:"created_at"`
	UpdatedAt            time.Time                              `json:"updated_at"`
}

// Blocks reports whether the given user appears in the blocked set.
func (s ContactSettings) Blocks(userID string) bool {
	for _, blocked := range s.BlockedUsers.Data() {
		if blocked == userID {
			return true
		}
	}
	return false
}

// AllowsRole reports whether contact from the given role is permitted.
// An absent entry means the role is allowed.
func (s ContactSettings) AllowsRole(role ContactRole) bool {
	access := s.RoleAccess.Data()
	if access == nil {
		return true
	}
	allowed, ok := access[role]
	if !ok {
		return true
	}
	return allowed
}

// ContactRequest is an inbound request for permission to contact a user.
type ContactRequest struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	RequesterID     string        `gorm:"size:64;index;not null" json:"requester_id"`
	RequesterName   string        `gorm:"size:255" json:"requester_name"`
	RequesterEmail  string        `gorm:"size:255" json:"requester_email"`
	RequesterRole   ContactRole   `gorm:"size:32" json:"requester_role"`
	TargetID        string        `gorm:"size:64;index;not null" json:"target_id"`
	TargetName      string        `gorm:"size:255" json:"target_name"`
	TargetEmail     string        `gorm:"size:255" json:"target_email"`
	TargetRole      ContactRole   `gorm:"size:32" json:"target_role"`
	RequestType     RequestType   `gorm:"size:64;not null;default:general_inquiry" json:"request_type"`
	Subject         string        `gorm:"size:255;not null" json:"subject"`
	Message         string        `gorm:"type:text" json:"message"`
	Status          RequestStatus `gorm:"size:32;index;not null;default:pending" json:"status"`
	Priority        Priority      `gorm:"size:16;not null;default:medium" json:"priority"`
	Category        string        `gorm:"size:64" json:"category"`
	ResponseMessage string        `gorm:"type:text" json:"response_message"`
	RespondedAt     *time.Time    `json:"responded_at"`
	RespondedBy     string        `gorm:"size:64" json:"responded_by"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Terminal reports whether the request has left the pending state for good.
func (r ContactRequest) Terminal() bool {
	return r.Status != RequestPending
}

// ContactConversation is a 1:1 thread between two participants. The pair is
// unordered: a conversation between A and B may be stored with either user
// in the first slot, and lookups must check both orderings.
type ContactConversation struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	ReferenceID        string             `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Participant1ID     string             `gorm:"size:64;index;not null" json:"participant1_id"`
	Participant1Name   string             `gorm:"size:255" json:"participant1_name"`
	Participant1Email  string             `gorm:"size:255" json:"participant1_email"`
	Participant1Role   ContactRole        `gorm:"size:32" json:"participant1_role"`
	Participant2ID     string             `gorm:"size:64;index;not null" json:"participant2_id"`
	Participant2Name   string             `gorm:"size:255" json:"participant2_name"`
	Participant2Email  string             `gorm:"size:255" json:"participant2_email"`
	Participant2Role   ContactRole        `gorm:"size:32" json:"participant2_role"`
	ConversationType   ConversationType   `gorm:"size:32;not null;default:direct_message" json:"conversation_type"`
	Subject            string             `gorm:"size:255" json:"subject"`
	Status             ConversationStatus `gorm:"size:32;not null;default:active" json:"status"`
	LastMessageAt      *time.Time         `gorm:"index" json:"last_message_at"`
	LastMessageID      uint               `json:"last_message_id"`
	LastMessageContent string             `gorm:"size:512" json:"last_message_content"`
	LastMessageSender  string             `gorm:"size:64" json:"last_message_sender"`
	UnreadCount1       int                `gorm:"not null;default:0" json:"unread_count1"`
	UnreadCount2       int                `gorm:"not null;default:0" json:"unread_count2"`
	IsArchived1        bool               `gorm:"not null;default:false" json:"is_archived1"`
	IsArchived2        bool               `gorm:"not null;default:false" json:"is_archived2"`
	IsBlocked1         bool               `gorm:"not null;default:false" json:"is_blocked1"`
	IsBlocked2         bool               `gorm:"not null;default:false" json:"is_blocked2"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Slot returns 1 or 2 for the participant slot occupied by userID, 0 when
// the user is not part of the conversation.
func (c ContactConversation) Slot(userID string) int {
	switch userID {
	case c.Participant1ID:
		return 1
	case c.Participant2ID:
		return 2
	default:
		return 0
	}
}

// UnreadFor returns the unread counter owned by the given participant.
func (c ContactConversation) UnreadFor(userID string) int {
	switch c.Slot(userID) {
	case 1:
		return c.UnreadCount1
	case 2:
		return c.UnreadCount2
	default:
		return 0
	}
}

// ArchivedFor returns the archive flag owned by the given participant.
func (c ContactConversation) ArchivedFor(userID string) bool {
	switch c.Slot(userID) {
	case 1:
		return c.IsArchived1
	case 2:
		return c.IsArchived2
	default:
		return false
	}
}

// CounterpartID returns the other participant's user id.
func (c ContactConversation) CounterpartID(userID string) string {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// MessageAttachment describes a file referenced by a message. Uploads happen
// outside this service; only the metadata travels with the message.
type MessageAttachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ContactMessage is a single message inside a conversation. Immutable once
// created except for its read state.
type ContactMessage struct {
	ID             uint                                      `gorm:"primaryKey" json:"id"`
	ConversationID uint                                      `gorm:"index;not null" json:"conversation_id"`
	SenderID       string                                    `gorm:"size:64;index;not null" json:"sender_id"`
	SenderName     string                                    `gorm:"size:255" json:"sender_name"`
	SenderRole     ContactRole                               `gorm:"size:32" json:"sender_role"`
	RecipientID    string                                    `gorm:"size:64;index;not null" json:"recipient_id"`
	RecipientName  string                                    `gorm:"size:255" json:"recipient_name"`
	RecipientRole  ContactRole                               `gorm:"size:32" json:"recipient_role"`
	MessageType    MessageType                               `gorm:"size:32;not null;default:text" json:"message_type"`
	Content        string                                    `gorm:"type:text" json:"content"`
	IsRead         bool                                      `gorm:"not null;default:false" json:"is_read"`
	ReadAt         *time.Time                                `json:"read_at"`
	Priority       Priority                                  `gorm:"size:16;not null;default:medium" json:"priority"`
	Category       string                                    `gorm:"size:64" json:"category"`
	Attachments    datatypes.JSONType[[]MessageAttachment]   `gorm:"type:json" json:"attachments"`
	Metadata       datatypes.JSONMap                         `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time                                 `json:"created_at"`
	UpdatedAt      time.Time                                 `json:"updated_at"`
}

// ContactNotification is an inbox entry produced as a side effect of
// request and message events. Mutable only in its read state.
type ContactNotification struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	UserID         string           `gorm:"size:64;index;not null" json:"user_id"`
	Type           NotificationType `gorm:"size:64;not null" json:"type"`
	Title          string           `gorm:"size:255" json:"title"`
	Message        string           `gorm:"type:text" json:"message"`
	RelatedID      uint             `json:"related_id"`
	RelatedType    string           `gorm:"size:64" json:"related_type"`
	IsRead         bool             `gorm:"not null;default:false" json:"is_read"`
	ReadAt         *time.Time       `json:"read_at"`
	Priority       Priority         `gorm:"size:16;not null;default:medium" json:"priority"`
	Category       string           `gorm:"size:64" json:"category"`
	ActionRequired bool             `gorm:"not null;default:false" json:"action_required"`
	ActionURL      string           `gorm:"size:512" json:"action_url"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
