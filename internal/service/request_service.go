package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/observability"
	"github.com/ksmp-platform/contact-api/internal/repository"
)

var (
	// ErrRequestNotFound indicates the referenced request id does not exist.
	ErrRequestNotFound = errors.New("contact request not found")
	// ErrInvalidRequestTransition indicates an attempt to respond to a
	// request that is no longer pending.
	ErrInvalidRequestTransition = errors.New("contact request is not pending")
	// ErrNotRequestTarget indicates the responder is not the request's target.
	ErrNotRequestTarget = errors.New("only the request target may respond")
)

// RequestService manages the contact request lifecycle.
type RequestService interface {
	Send(ctx context.Context, req dto.ContactRequestCreate) (dto.ContactRequestResponse, error)
	Respond(ctx context.Context, requestID uint, responderID string, decision dto.ContactRequestRespond) (dto.ContactRequestResponse, error)
	List(ctx context.Context, userID string, query dto.ContactRequestListQuery) ([]dto.ContactRequestResponse, error)
}

type requestService struct {
	repo      repository.ContactRequestRepository
	policy    ContactPolicy
	notifier  NotificationDispatcher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewRequestService constructs the contact request manager.
func NewRequestService(repo repository.ContactRequestRepository, policy ContactPolicy, notifier NotificationDispatcher, validate *validator.Validate, logger zerolog.Logger) RequestService {
	return &requestService{
		repo:      repo,
		policy:    policy,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "request_service").Logger(),
		tracer:    otel.Tracer("github.com/ksmp-platform/contact-api/internal/service/request"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Send validates the target's settings, persists the request as pending and
// notifies the target.
func (s *requestService) Send(ctx context.Context, req dto.ContactRequestCreate) (dto.ContactRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ContactRequestResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "requests.send", trace.WithAttributes(
		attribute.String("request.requester_id", req.Requester.ID),
		attribute.String("request.target_id", req.Target.ID),
	))
	defer span.End()

	if err := s.policy.CanRequestContact(spanCtx, req.Target.ID, req.Requester.ID, models.ContactRole(req.Requester.Role)); err != nil {
		span.SetStatus(codes.Error, "contact denied")
		observability.RequestsProcessed().WithLabelValues("denied").Inc()
		return dto.ContactRequestResponse{}, err
	}

	requestType := models.RequestType(req.RequestType)
	if requestType == "" {
		requestType = models.RequestGeneralInquiry
	}
	priority := models.Priority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	model := models.ContactRequest{
		RequesterID:    req.Requester.ID,
		RequesterName:  strings.TrimSpace(req.Requester.Name),
		RequesterEmail: strings.ToLower(strings.TrimSpace(req.Requester.Email)),
		RequesterRole:  models.ContactRole(req.Requester.Role),
		TargetID:       req.Target.ID,
		TargetName:     strings.TrimSpace(req.Target.Name),
		TargetEmail:    strings.ToLower(strings.TrimSpace(req.Target.Email)),
		TargetRole:     models.ContactRole(req.Target.Role),
		RequestType:    requestType,
		Subject:        strings.TrimSpace(s.sanitizer.Sanitize(req.Subject)),
		Message:        strings.TrimSpace(s.sanitizer.Sanitize(req.Message)),
		Status:         models.RequestPending,
		Priority:       priority,
		Category:       strings.TrimSpace(req.Category),
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.RequestsProcessed().WithLabelValues("error").Inc()
		return dto.ContactRequestResponse{}, err
	}

	s.notifier.Dispatch(spanCtx, NotificationInput{
		UserID:         model.TargetID,
		Type:           models.NotifyNewContactRequest,
		Title:          "New contact request",
		Message:        fmt.Sprintf("%s sent you a contact request: %s", requesterDisplayName(model), model.Subject),
		RelatedID:      model.ID,
		RelatedType:    "contact_request",
		Priority:       model.Priority,
		Category:       model.Category,
		ActionRequired: true,
	})

	observability.RequestsProcessed().WithLabelValues("sent").Inc()
	s.logger.Info().
		Uint("request_id", model.ID).
		Str("requester_id", model.RequesterID).
		Str("target_id", model.TargetID).
		Msg("contact request sent")

	return dto.NewContactRequestResponse(model), nil
}

func requesterDisplayName(request models.ContactRequest) string {
	if request.RequesterName != "" {
		return request.RequesterName
	}
	return request.RequesterID
}

// Respond transitions a pending request to approved or rejected exactly
// once and notifies the original requester.
func (s *requestService) Respond(ctx context.Context, requestID uint, responderID string, decision dto.ContactRequestRespond) (dto.ContactRequestResponse, error) {
	if err := s.validator.Struct(decision); err != nil {
		return dto.ContactRequestResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "requests.respond", trace.WithAttributes(
		attribute.Int("request.id", int(requestID)),
		attribute.String("request.decision", decision.Status),
	))
	defer span.End()

	request, err := s.repo.FindByID(spanCtx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ContactRequestResponse{}, ErrRequestNotFound
		}
		span.RecordError(err)
		return dto.ContactRequestResponse{}, err
	}

	if responderID != "" && request.TargetID != responderID {
		return dto.ContactRequestResponse{}, ErrNotRequestTarget
	}

	if request.Terminal() {
		span.SetStatus(codes.Error, "request already resolved")
		return dto.ContactRequestResponse{}, ErrInvalidRequestTransition
	}

	now := time.Now().UTC()
	request.Status = models.RequestStatus(decision.Status)
	request.ResponseMessage = strings.TrimSpace(s.sanitizer.Sanitize(decision.ResponseMessage))
	request.RespondedAt = &now
	request.RespondedBy = responderID

	if err := s.repo.Save(spanCtx, &request); err != nil {
		span.RecordError(err)
		observability.RequestsProcessed().WithLabelValues("error").Inc()
		return dto.ContactRequestResponse{}, err
	}

	notificationType := models.NotifyContactApproved
	title := "Contact request approved"
	if request.Status == models.RequestRejected {
		notificationType = models.NotifyContactRejected
		title = "Contact request declined"
	}

	s.notifier.Dispatch(spanCtx, NotificationInput{
		UserID:      request.RequesterID,
		Type:        notificationType,
		Title:       title,
		Message:     fmt.Sprintf("Your contact request %q was %s", request.Subject, request.Status),
		RelatedID:   request.ID,
		RelatedType: "contact_request",
		Priority:    request.Priority,
		Category:    request.Category,
	})

	observability.RequestsProcessed().WithLabelValues(string(request.Status)).Inc()
	s.logger.Info().
		Uint("request_id", request.ID).
		Str("status", string(request.Status)).
		Str("responded_by", responderID).
		Msg("contact request resolved")

	return dto.NewContactRequestResponse(request), nil
}

// List returns the user's inbound requests, most urgent first.
func (s *requestService) List(ctx context.Context, userID string, query dto.ContactRequestListQuery) ([]dto.ContactRequestResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	requests, err := s.repo.List(ctx, repository.ContactRequestFilter{
		TargetID:   userID,
		Statuses:   query.Statuses,
		Priorities: query.Priorities,
		Categories: query.Categories,
		Types:      query.Types,
		Search:     query.Search,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewContactRequestResponseSlice(requests), nil
}
