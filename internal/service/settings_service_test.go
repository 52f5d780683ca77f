package service

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type settingsRepoStub struct {
	records map[string]models.ContactSettings
	nextID  uint
}

func newSettingsRepoStub() *settingsRepoStub {
	return &settingsRepoStub{records: make(map[string]models.ContactSettings), nextID: 1}
}

func (s *settingsRepoStub) Create(ctx context.Context, settings *models.ContactSettings) error {
	settings.ID = s.nextID
	s.nextID++
	s.records[settings.UserID] = *settings
	return nil
}

func (s *settingsRepoStub) Save(ctx context.Context, settings *models.ContactSettings) error {
	s.records[settings.UserID] = *settings
	return nil
}

func (s *settingsRepoStub) GetByUserID(ctx context.Context, userID string) (models.ContactSettings, error) {
	record, ok := s.records[userID]
	if !ok {
		return models.ContactSettings{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func boolPtr(v bool) *bool { return &v }

func TestSettingsGetReturnsDefaultsWithoutCreating(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := NewSettingsService(repo, validator.New(), testLogger())

	settings, found, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, settings.AllowContactRequests)
	require.True(t, settings.AllowDirectMessages)
	require.Empty(t, repo.records)
}

func TestSettingsUpsertPartialUpdate(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := NewSettingsService(repo, validator.New(), testLogger())

	updated, err := svc.Upsert(context.Background(), "user-1", dto.ContactSettingsUpdateRequest{
		AllowDirectMessages: boolPtr(false),
	})
	require.NoError(t, err)
	require.False(t, updated.AllowDirectMessages)
	require.True(t, updated.AllowContactRequests)

	tz := "Asia/Jakarta"
	updated, err = svc.Upsert(context.Background(), "user-1", dto.ContactSettingsUpdateRequest{Timezone: &tz})
	require.NoError(t, err)
	require.Equal(t, "Asia/Jakarta", updated.Timezone)
	require.False(t, updated.AllowDirectMessages)
}

func TestSettingsUpsertRejectsInvalidPrivacyLevel(t *testing.T) {
	svc := NewSettingsService(newSettingsRepoStub(), validator.New(), testLogger())

	bogus := "secret"
	_, err := svc.Upsert(context.Background(), "user-1", dto.ContactSettingsUpdateRequest{PrivacyLevel: &bogus})
	require.Error(t, err)
}

func TestSettingsBlockRequiresExistingRecord(t *testing.T) {
	svc := NewSettingsService(newSettingsRepoStub(), validator.New(), testLogger())

	_, err := svc.Block(context.Background(), "user-1", "user-2")
	require.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestSettingsBlockUnblockIdempotent(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := NewSettingsService(repo, validator.New(), testLogger())

	_, err := svc.Upsert(context.Background(), "user-1", dto.ContactSettingsUpdateRequest{})
	require.NoError(t, err)

	settings, err := svc.Block(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	require.Equal(t, []string{"user-2"}, settings.BlockedUsers)

	settings, err = svc.Block(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	require.Equal(t, []string{"user-2"}, settings.BlockedUsers)

	settings, err = svc.Unblock(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	require.Empty(t, settings.BlockedUsers)

	settings, err = svc.Unblock(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	require.Empty(t, settings.BlockedUsers)
}

func TestCanRequestContactGates(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := NewSettingsService(repo, validator.New(), testLogger())

	// No stored settings means permissive defaults.
	require.NoError(t, svc.CanRequestContact(context.Background(), "target", "requester", models.RoleStartup))

	_, err := svc.Upsert(context.Background(), "target", dto.ContactSettingsUpdateRequest{})
	require.NoError(t, err)
	_, err = svc.Block(context.Background(), "target", "requester")
	require.NoError(t, err)

	require.ErrorIs(t, svc.CanRequestContact(context.Background(), "target", "requester", models.RoleStartup), ErrSenderBlocked)
	require.NoError(t, svc.CanRequestContact(context.Background(), "target", "someone-else", models.RoleStartup))

	_, err = svc.Upsert(context.Background(), "target", dto.ContactSettingsUpdateRequest{
		AllowContactRequests: boolPtr(false),
	})
	require.NoError(t, err)
	require.ErrorIs(t, svc.CanRequestContact(context.Background(), "target", "someone-else", models.RoleStartup), ErrContactRequestsDisabled)
}

func TestCanMessageHonoursRoleAccess(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := NewSettingsService(repo, validator.New(), testLogger())

	_, err := svc.Upsert(context.Background(), "target", dto.ContactSettingsUpdateRequest{
		RoleAccess: map[models.ContactRole]bool{models.RoleStartup: false},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.CanMessage(context.Background(), "target", "sender", models.RoleStartup), ErrDirectMessagesDisabled)
	// Roles without an explicit entry stay allowed.
	require.NoError(t, svc.CanMessage(context.Background(), "target", "sender", models.RoleMentor))
}
