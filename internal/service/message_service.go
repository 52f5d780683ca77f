package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/observability"
	"github.com/ksmp-platform/contact-api/internal/repository"
)

const (
	messageCacheTTL      = 30 * time.Minute
	streamSendBufferSize = 32
	streamPingInterval   = 30 * time.Second
)

// ErrEmptyMessage indicates the content was empty after sanitization.
var ErrEmptyMessage = errors.New("message content empty after sanitization")

// StreamOptions wraps metadata extracted during the websocket upgrade.
type StreamOptions struct {
	UserID         string
	Role           string
	ConversationID uint
	CorrelationID  string
	Context        context.Context
}

// StreamPayload is the slim frame clients push over an open conversation
// stream; sender and recipient are derived from the connection.
type StreamPayload struct {
	Content     string `json:"content" validate:"required,min=1,max=8000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image file meeting_invite"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string `json:"category" validate:"omitempty,max=64"`
}

// MessageService appends messages to conversations, enforcing the
// recipient's contact policy, and delivers them over open streams.
type MessageService interface {
	Send(ctx context.Context, req dto.MessageSendRequest) (dto.MessageResponse, error)
	MarkRead(ctx context.Context, id uint) (dto.MessageResponse, error)
	List(ctx context.Context, userID string, conversationID uint) ([]dto.MessageResponse, error)
	ServeConnection(conn *websocket.Conn, opts StreamOptions)
	Start(ctx context.Context)
}

type messageService struct {
	repo          repository.ContactMessageRepository
	conversations ConversationService
	policy        ContactPolicy
	notifier      NotificationDispatcher
	redis         *redis.Client
	redisStream   string
	redisCache    string
	nats          *nats.Conn
	natsSubject   string
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	sanitizer     *bluemonday.Policy
	hub           *streamHub
	nodeID        string
}

// streamHub tracks open websocket clients per conversation.
type streamHub struct {
	mu            sync.RWMutex
	conversations map[uint]map[*streamClient]struct{}
	log           zerolog.Logger
}

type streamClient struct {
	conn    *websocket.Conn
	send    chan dto.MessageResponse
	options StreamOptions
	service *messageService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type messageEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewMessageService creates the message manager.
func NewMessageService(
	repo repository.ContactMessageRepository,
	conversations ConversationService,
	policy ContactPolicy,
	notifier NotificationDispatcher,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	stream := ""
	cachePrefix := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":messages"
		cachePrefix = channelBase + ":messages:last"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &messageService{
		repo:          repo,
		conversations: conversations,
		policy:        policy,
		notifier:      notifier,
		redis:         redisClient,
		redisStream:   stream,
		redisCache:    cachePrefix,
		nats:          natsConn,
		natsSubject:   subject,
		validator:     validate,
		logger:        logger.With().Str("component", "message_service").Logger(),
		tracer:        otel.Tracer("github.com/ksmp-platform/contact-api/internal/service/message"),
		sanitizer:     sanitizer,
		hub: &streamHub{
			conversations: make(map[uint]map[*streamClient]struct{}),
			log:           logger.With().Str("component", "message_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *messageService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Send gates the message on the recipient's settings, resolves the
// conversation, persists the message and applies the conversation effects.
// The notification is best-effort and never fails the send.
func (s *messageService) Send(ctx context.Context, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}

	if err := s.policy.CanMessage(ctx, req.Recipient.ID, req.Sender.ID, models.ContactRole(req.Sender.Role)); err != nil {
		observability.MessagesSent().WithLabelValues("denied").Inc()
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if clean == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	messageType := models.MessageType(req.MessageType)
	if messageType == "" {
		messageType = models.MessageText
	}
	priority := models.Priority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.send", trace.WithAttributes(
		attribute.String("message.sender_id", req.Sender.ID),
		attribute.String("message.recipient_id", req.Recipient.ID),
		attribute.String("message.type", string(messageType)),
	))
	defer span.End()

	conversation, err := s.conversations.FindOrCreate(spanCtx, req.Sender, req.Recipient, req.Subject)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	model := models.ContactMessage{
		ConversationID: conversation.ID,
		SenderID:       req.Sender.ID,
		SenderName:     req.Sender.Name,
		SenderRole:     models.ContactRole(req.Sender.Role),
		RecipientID:    req.Recipient.ID,
		RecipientName:  req.Recipient.Name,
		RecipientRole:  models.ContactRole(req.Recipient.Role),
		MessageType:    messageType,
		Content:        clean,
		Priority:       priority,
		Category:       req.Category,
	}
	if len(req.Attachments) > 0 {
		model.Attachments = datatypes.NewJSONType(req.Attachments)
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	// The three steps below are not atomic across records; a crash here
	// leaves a message without an updated summary, reconciled on the next
	// append. See the conversation repository contract.
	if _, err := s.conversations.ApplyMessage(spanCtx, model); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("message_id", model.ID).Msg("failed to apply conversation effects")
	}

	response := dto.NewMessageResponse(model)
	s.cacheLastMessage(spanCtx, response)
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish message event")
	}

	s.notifier.Dispatch(spanCtx, NotificationInput{
		UserID:      req.Recipient.ID,
		Type:        models.NotifyNewMessage,
		Title:       "New message",
		Message:     fmt.Sprintf("%s sent you a message", senderDisplayName(req.Sender)),
		RelatedID:   model.ID,
		RelatedType: "contact_message",
		Priority:    priority,
		Category:    req.Category,
	})

	observability.MessagesSent().WithLabelValues(string(messageType)).Inc()

	return response, nil
}

func senderDisplayName(sender dto.ParticipantRef) string {
	if sender.Name != "" {
		return sender.Name
	}
	return sender.ID
}

// MarkRead flips the message read flag; repeated calls are no-ops. The
// conversation unread counter is reset separately when the conversation is
// opened.
func (s *messageService) MarkRead(ctx context.Context, id uint) (dto.MessageResponse, error) {
	message, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	return dto.NewMessageResponse(message), nil
}

// List returns the conversation transcript oldest first.
func (s *messageService) List(ctx context.Context, userID string, conversationID uint) ([]dto.MessageResponse, error) {
	if _, err := s.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) ServeConnection(conn *websocket.Conn, opts StreamOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	conversation, err := s.conversations.Get(baseCtx, opts.UserID, opts.ConversationID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", opts.UserID).Uint("conversation_id", opts.ConversationID).Msg("rejecting conversation stream")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a participant"))
		_ = conn.Close()
		return
	}

	client := &streamClient{
		conn:    conn,
		send:    make(chan dto.MessageResponse, streamSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.StreamClientsActive().WithLabelValues("websocket").Inc()
	defer observability.StreamClientsActive().WithLabelValues("websocket").Dec()

	if last := s.fetchLastMessage(baseCtx, opts.ConversationID); last != nil {
		select {
		case client.send <- *last:
		default:
			s.logger.Debug().Uint("conversation_id", opts.ConversationID).Msg("dropping cached message for slow consumer")
		}
	}

	go client.writer()
	client.reader(conversation)
}

func (s *messageService) processStreamSend(ctx context.Context, client *streamClient, conversation models.ContactConversation, payload StreamPayload) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	counterpartID := conversation.CounterpartID(client.options.UserID)
	counterpartSlot := conversation.Slot(counterpartID)

	recipient := dto.ParticipantRef{
		ID:   conversation.Participant1ID,
		Name: conversation.Participant1Name,
		Role: string(conversation.Participant1Role),
	}
	if counterpartSlot == 2 {
		recipient = dto.ParticipantRef{
			ID:   conversation.Participant2ID,
			Name: conversation.Participant2Name,
			Role: string(conversation.Participant2Role),
		}
	}

	sender := dto.ParticipantRef{ID: client.options.UserID, Role: client.options.Role}
	if slot := conversation.Slot(client.options.UserID); slot == 1 {
		sender.Name = conversation.Participant1Name
	} else if slot == 2 {
		sender.Name = conversation.Participant2Name
	}

	return s.Send(ctx, dto.MessageSendRequest{
		Sender:      sender,
		Recipient:   recipient,
		MessageType: payload.MessageType,
		Content:     payload.Content,
		Priority:    payload.Priority,
		Category:    payload.Category,
	})
}

func (s *messageService) cacheLastMessage(ctx context.Context, message dto.MessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal message for cache")
		return
	}

	key := fmt.Sprintf("%s:%d", s.redisCache, message.ConversationID)
	if err := s.redis.Set(ctx, key, payload, messageCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache message")
	}
}

func (s *messageService) fetchLastMessage(ctx context.Context, conversationID uint) *dto.MessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%d", s.redisCache, conversationID)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.MessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached message")
		return nil
	}

	return &message
}

func (s *messageService) broadcast(message dto.MessageResponse) {
	s.hub.broadcast(message.ConversationID, message)
}

func (s *messageService) publish(ctx context.Context, message dto.MessageResponse) error {
	event := messageEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *messageService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("message redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *messageService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "ksmp-contact-messages", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats message subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain message nats subscription")
		}
	}()
}

func (s *messageService) handleEvent(data []byte) {
	var event messageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid message event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broadcast(event.Message)
}

func (h *streamHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := client.options.ConversationID
	if _, exists := h.conversations[id]; !exists {
		h.conversations[id] = make(map[*streamClient]struct{})
	}
	h.conversations[id][client] = struct{}{}
	h.log.Debug().Uint("conversation_id", id).Str("user_id", client.options.UserID).Msg("stream client connected")
}

func (h *streamHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := client.options.ConversationID
	if clients, ok := h.conversations[id]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.conversations, id)
		}
	}
	h.log.Debug().Uint("conversation_id", id).Str("user_id", client.options.UserID).Msg("stream client disconnected")
}

func (h *streamHub) broadcast(conversationID uint, message dto.MessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.conversations[conversationID]
	for client := range clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn().Uint("conversation_id", conversationID).Str("user_id", client.options.UserID).Msg("dropping message for slow client")
		}
	}
}

func (c *streamClient) reader(conversation models.ContactConversation) {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}

	for {
		var payload StreamPayload
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("stream read loop ended")
			return
		}

		response, err := c.service.processStreamSend(connCtx, c, conversation, payload)
		if err != nil {
			c.service.logger.Warn().Err(err).Msg("failed to process stream message")
			continue
		}

		select {
		case <-c.closed:
			return
		default:
		}

		select {
		case c.send <- response:
		default:
			c.service.logger.Warn().Msg("sender queue full, dropping ack message")
		}
	}
}

func (c *streamClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("stream write loop terminated")
				return
			}
		case <-time.After(streamPingInterval):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("stream ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
