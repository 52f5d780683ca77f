package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/repository"
)

var (
	// ErrSettingsNotFound indicates block/unblock was attempted for a user
	// without an explicit settings record.
	ErrSettingsNotFound = errors.New("contact settings not found")
	// ErrContactRequestsDisabled indicates the target has switched off contact requests.
	ErrContactRequestsDisabled = errors.New("target does not accept contact requests")
	// ErrDirectMessagesDisabled indicates the recipient has switched off direct messages.
	ErrDirectMessagesDisabled = errors.New("recipient does not accept direct messages")
	// ErrSenderBlocked indicates the sender appears in the target's block list.
	ErrSenderBlocked = errors.New("sender is blocked by the target user")
)

// ContactPolicy answers whether one user may initiate contact with another,
// based on the target's stored settings. Absent settings fall back to the
// permissive defaults.
type ContactPolicy interface {
	CanRequestContact(ctx context.Context, targetID, requesterID string, requesterRole models.ContactRole) error
	CanMessage(ctx context.Context, recipientID, senderID string, senderRole models.ContactRole) error
}

// SettingsService manages per-user contact and privacy settings.
type SettingsService interface {
	ContactPolicy
	Get(ctx context.Context, userID string) (dto.ContactSettingsResponse, bool, error)
	Upsert(ctx context.Context, userID string, update dto.ContactSettingsUpdateRequest) (dto.ContactSettingsResponse, error)
	Block(ctx context.Context, userID, targetID string) (dto.ContactSettingsResponse, error)
	Unblock(ctx context.Context, userID, targetID string) (dto.ContactSettingsResponse, error)
}

type settingsService struct {
	repo      repository.ContactSettingsRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSettingsService constructs the contact settings service.
func NewSettingsService(repo repository.ContactSettingsRepository, validate *validator.Validate, logger zerolog.Logger) SettingsService {
	return &settingsService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "settings_service").Logger(),
		tracer:    otel.Tracer("github.com/ksmp-platform/contact-api/internal/service/settings"),
	}
}

// defaultSettings builds the permissive record created lazily on first write.
func defaultSettings(userID string) models.ContactSettings {
	return models.ContactSettings{
		UserID:               userID,
		AllowContactRequests: true,
		AllowDirectMessages:  true,
		AllowMeetingRequests: true,
		PrivacyLevel:         models.PrivacyPrivate,
		BlockedUsers:         datatypes.NewJSONType([]string{}),
		WhitelistedUsers:     datatypes.NewJSONType([]string{}),
		Timezone:             "UTC",
	}
}

func (s *settingsService) Get(ctx context.Context, userID string) (dto.ContactSettingsResponse, bool, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Absent settings mean "defaults apply"; callers render the
			// defaults without creating a record.
			return dto.NewContactSettingsResponse(defaultSettings(userID)), false, nil
		}
		return dto.ContactSettingsResponse{}, false, err
	}
	return dto.NewContactSettingsResponse(settings), true, nil
}

func (s *settingsService) Upsert(ctx context.Context, userID string, update dto.ContactSettingsUpdateRequest) (dto.ContactSettingsResponse, error) {
	if err := s.validator.Struct(update); err != nil {
		return dto.ContactSettingsResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "settings.upsert", trace.WithAttributes(
		attribute.String("settings.user_id", userID),
	))
	defer span.End()

	settings, err := s.repo.GetByUserID(ctx, userID)
	created := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			return dto.ContactSettingsResponse{}, err
		}
		settings = defaultSettings(userID)
		created = true
	}

	applySettingsUpdate(&settings, update)

	if created {
		err = s.repo.Create(ctx, &settings)
	} else {
		err = s.repo.Save(ctx, &settings)
	}
	if err != nil {
		span.RecordError(err)
		return dto.ContactSettingsResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Bool("created", created).Msg("contact settings updated")
	return dto.NewContactSettingsResponse(settings), nil
}

// applySettingsUpdate copies only the provided fields onto the record.
func applySettingsUpdate(settings *models.ContactSettings, update dto.ContactSettingsUpdateRequest) {
	if update.AllowContactRequests != nil {
		settings.AllowContactRequests = *update.AllowContactRequests
	}
	if update.AllowDirectMessages != nil {
		settings.AllowDirectMessages = *update.AllowDirectMessages
	}
	if update.AllowMeetingRequests != nil {
		settings.AllowMeetingRequests = *update.AllowMeetingRequests
	}
	if update.RoleAccess != nil {
		settings.RoleAccess = datatypes.NewJSONType(update.RoleAccess)
	}
	if update.PrivacyLevel != nil {
		settings.PrivacyLevel = models.PrivacyLevel(*update.PrivacyLevel)
	}
	if update.ContactPreferences != nil {
		settings.ContactPreferences = update.ContactPreferences
	}
	if update.NotificationSettings != nil {
		settings.NotificationSettings = update.NotificationSettings
	}
	if update.Timezone != nil {
		settings.Timezone = *update.Timezone
	}
}

// Block adds targetID to the user's block list. Blocking requires an
// explicit settings record; there is no lazy create on this path.
func (s *settingsService) Block(ctx context.Context, userID, targetID string) (dto.ContactSettingsResponse, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ContactSettingsResponse{}, ErrSettingsNotFound
		}
		return dto.ContactSettingsResponse{}, err
	}

	blocked := settings.BlockedUsers.Data()
	for _, existing := range blocked {
		if existing == targetID {
			return dto.NewContactSettingsResponse(settings), nil
		}
	}

	settings.BlockedUsers = datatypes.NewJSONType(append(blocked, targetID))
	if err := s.repo.Save(ctx, &settings); err != nil {
		return dto.ContactSettingsResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("blocked_id", targetID).Msg("user blocked")
	return dto.NewContactSettingsResponse(settings), nil
}

func (s *settingsService) Unblock(ctx context.Context, userID, targetID string) (dto.ContactSettingsResponse, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ContactSettingsResponse{}, ErrSettingsNotFound
		}
		return dto.ContactSettingsResponse{}, err
	}

	blocked := settings.BlockedUsers.Data()
	filtered := make([]string, 0, len(blocked))
	for _, existing := range blocked {
		if existing != targetID {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == len(blocked) {
		return dto.NewContactSettingsResponse(settings), nil
	}

	settings.BlockedUsers = datatypes.NewJSONType(filtered)
	if err := s.repo.Save(ctx, &settings); err != nil {
		return dto.ContactSettingsResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("unblocked_id", targetID).Msg("user unblocked")
	return dto.NewContactSettingsResponse(settings), nil
}

func (s *settingsService) CanRequestContact(ctx context.Context, targetID, requesterID string, requesterRole models.ContactRole) error {
	settings, err := s.repo.GetByUserID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if settings.Blocks(requesterID) {
		return ErrSenderBlocked
	}
	if !settings.AllowContactRequests {
		return ErrContactRequestsDisabled
	}
	if requesterRole != "" && !settings.AllowsRole(requesterRole) {
		return ErrContactRequestsDisabled
	}
	return nil
}

func (s *settingsService) CanMessage(ctx context.Context, recipientID, senderID string, senderRole models.ContactRole) error {
	settings, err := s.repo.GetByUserID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if settings.Blocks(senderID) {
		return ErrSenderBlocked
	}
	if !settings.AllowDirectMessages {
		return ErrDirectMessagesDisabled
	}
	if senderRole != "" && !settings.AllowsRole(senderRole) {
		return ErrDirectMessagesDisabled
	}
	return nil
}
