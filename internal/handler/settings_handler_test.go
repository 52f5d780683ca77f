package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/handler"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/service"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// withUser injects the authenticated user the way the JWT middleware would.
func withUser(userID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

type mockSettingsService struct {
	settings   dto.ContactSettingsResponse
	found      bool
	err        error
	lastUpdate dto.ContactSettingsUpdateRequest
	blocked    []string
}

func (m *mockSettingsService) Get(_ context.Context, userID string) (dto.ContactSettingsResponse, bool, error) {
	return m.settings, m.found, m.err
}

func (m *mockSettingsService) Upsert(_ context.Context, userID string, update dto.ContactSettingsUpdateRequest) (dto.ContactSettingsResponse, error) {
	m.lastUpdate = update
	return m.settings, m.err
}

func (m *mockSettingsService) Block(_ context.Context, userID, targetID string) (dto.ContactSettingsResponse, error) {
	if m.err != nil {
		return dto.ContactSettingsResponse{}, m.err
	}
	m.blocked = append(m.blocked, targetID)
	return m.settings, nil
}

func (m *mockSettingsService) Unblock(_ context.Context, userID, targetID string) (dto.ContactSettingsResponse, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) CanRequestContact(_ context.Context, targetID, requesterID string, requesterRole models.ContactRole) error {
	return nil
}

func (m *mockSettingsService) CanMessage(_ context.Context, recipientID, senderID string, senderRole models.ContactRole) error {
	return nil
}

func newSettingsApp(svc service.SettingsService, userID string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/contact/settings", withUser(userID, "investor"))
	handler.NewSettingsHandler(svc, testLogger()).Register(group)
	return app
}

func TestSettingsHandler_Get(t *testing.T) {
	svc := &mockSettingsService{settings: dto.ContactSettingsResponse{UserID: "investor-1", AllowContactRequests: true}}
	app := newSettingsApp(svc, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/contact/settings", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                        `json:"success"`
		Data    dto.ContactSettingsResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "investor-1", response.Data.UserID)
}

func TestSettingsHandler_GetUnauthenticated(t *testing.T) {
	app := newSettingsApp(&mockSettingsService{}, "")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/contact/settings", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSettingsHandler_Update(t *testing.T) {
	svc := &mockSettingsService{}
	app := newSettingsApp(svc, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/v1/contact/settings", map[string]interface{}{
		"allow_direct_messages": false,
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.lastUpdate.AllowDirectMessages)
	require.False(t, *svc.lastUpdate.AllowDirectMessages)
}

func TestSettingsHandler_Block(t *testing.T) {
	svc := &mockSettingsService{}
	app := newSettingsApp(svc, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/contact/settings/block/startup-9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"startup-9"}, svc.blocked)
}

func TestSettingsHandler_BlockSelf(t *testing.T) {
	svc := &mockSettingsService{}
	app := newSettingsApp(svc, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/contact/settings/block/investor-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.blocked)
}

func TestSettingsHandler_BlockMissingSettings(t *testing.T) {
	svc := &mockSettingsService{err: service.ErrSettingsNotFound}
	app := newSettingsApp(svc, "investor-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/contact/settings/block/startup-9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
