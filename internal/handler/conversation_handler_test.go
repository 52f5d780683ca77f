package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/handler"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/service"
)

type mockConversationService struct {
	conversations []dto.ConversationResponse
	single        dto.ConversationResponse
	unread        int
	err           error
	lastUser      string
	lastID        uint
}

func (m *mockConversationService) FindOrCreate(_ context.Context, a, b dto.ParticipantRef, subject string) (models.ContactConversation, error) {
	return models.ContactConversation{}, m.err
}

func (m *mockConversationService) Get(_ context.Context, userID string, id uint) (models.ContactConversation, error) {
	return models.ContactConversation{}, m.err
}

func (m *mockConversationService) ApplyMessage(_ context.Context, message models.ContactMessage) (models.ContactConversation, error) {
	return models.ContactConversation{}, m.err
}

func (m *mockConversationService) List(_ context.Context, userID string) ([]dto.ConversationResponse, error) {
	m.lastUser = userID
	return m.conversations, m.err
}

func (m *mockConversationService) Archive(_ context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	m.lastUser, m.lastID = userID, id
	if m.err != nil {
		return dto.ConversationResponse{}, m.err
	}
	return m.single, nil
}

func (m *mockConversationService) Unarchive(_ context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	m.lastUser, m.lastID = userID, id
	if m.err != nil {
		return dto.ConversationResponse{}, m.err
	}
	return m.single, nil
}

func (m *mockConversationService) MarkRead(_ context.Context, userID string, id uint) (dto.ConversationResponse, error) {
	m.lastUser, m.lastID = userID, id
	if m.err != nil {
		return dto.ConversationResponse{}, m.err
	}
	return m.single, nil
}

func (m *mockConversationService) UnreadTotal(_ context.Context, userID string) (int, error) {
	m.lastUser = userID
	return m.unread, m.err
}

type mockMessageService struct {
	lastSend     dto.MessageSendRequest
	lastReadID   uint
	lastListUser string
	lastListID   uint
	response     dto.MessageResponse
	transcript   []dto.MessageResponse
	err          error
}

func (m *mockMessageService) Send(_ context.Context, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	m.lastSend = req
	if m.err != nil {
		return dto.MessageResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockMessageService) MarkRead(_ context.Context, id uint) (dto.MessageResponse, error) {
	m.lastReadID = id
	if m.err != nil {
		return dto.MessageResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockMessageService) List(_ context.Context, userID string, conversationID uint) ([]dto.MessageResponse, error) {
	m.lastListUser = userID
	m.lastListID = conversationID
	return m.transcript, m.err
}

func (m *mockMessageService) ServeConnection(conn *websocket.Conn, opts service.StreamOptions) {}

func (m *mockMessageService) Start(ctx context.Context) {}

func newConversationApp(conversations service.ConversationService, messages service.MessageService, userID string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/conversations", withUser(userID, "investor"))
	handler.NewConversationHandler(conversations, messages, testLogger()).Register(group)
	return app
}

func TestConversationHandler_List(t *testing.T) {
	svc := &mockConversationService{conversations: []dto.ConversationResponse{{ID: 1, UnreadCount: 2}}}
	app := newConversationApp(svc, &mockMessageService{}, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/conversations", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "investor-1", svc.lastUser)

	var response struct {
		Success bool                       `json:"success"`
		Data    []dto.ConversationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
	require.Equal(t, 2, response.Data[0].UnreadCount)
}

func TestConversationHandler_UnreadCount(t *testing.T) {
	svc := &mockConversationService{unread: 5}
	app := newConversationApp(svc, &mockMessageService{}, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/conversations/unread-count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data map[string]int `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 5, response.Data["unread"])
}

func TestConversationHandler_Transcript(t *testing.T) {
	messages := &mockMessageService{transcript: []dto.MessageResponse{{ID: 1}, {ID: 2}}}
	app := newConversationApp(&mockConversationService{}, messages, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/conversations/9/messages", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "investor-1", messages.lastListUser)
	require.Equal(t, uint(9), messages.lastListID)
}

func TestConversationHandler_TranscriptForbidden(t *testing.T) {
	messages := &mockMessageService{err: service.ErrNotParticipant}
	app := newConversationApp(&mockConversationService{}, messages, "intruder")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/conversations/9/messages", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestConversationHandler_MarkRead(t *testing.T) {
	svc := &mockConversationService{single: dto.ConversationResponse{ID: 9, UnreadCount: 0}}
	app := newConversationApp(svc, &mockMessageService{}, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/conversations/9/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(9), svc.lastID)
}

func TestConversationHandler_ArchiveNotFound(t *testing.T) {
	svc := &mockConversationService{err: gorm.ErrRecordNotFound}
	app := newConversationApp(svc, &mockMessageService{}, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/conversations/9/archive", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
