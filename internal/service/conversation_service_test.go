package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksmp-platform/contact-api/internal/dto"
	"github.com/ksmp-platform/contact-api/internal/models"
)

type conversationRepoStub struct {
	records map[uint]models.ContactConversation
	nextID  uint
}

func newConversationRepoStub() *conversationRepoStub {
	return &conversationRepoStub{records: make(map[uint]models.ContactConversation), nextID: 1}
}

func (r *conversationRepoStub) Create(ctx context.Context, conversation *models.ContactConversation) error {
	conversation.ID = r.nextID
	r.nextID++
	r.records[conversation.ID] = *conversation
	return nil
}

func (r *conversationRepoStub) Save(ctx context.Context, conversation *models.ContactConversation) error {
	r.records[conversation.ID] = *conversation
	return nil
}

func (r *conversationRepoStub) FindByID(ctx context.Context, id uint) (models.ContactConversation, error) {
	record, ok := r.records[id]
	if !ok {
		return models.ContactConversation{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *conversationRepoStub) FindByParticipants(ctx context.Context, userA, userB string) (models.ContactConversation, error) {
	for _, record := range r.records {
		if (record.Participant1ID == userA && record.Participant2ID == userB) ||
			(record.Participant1ID == userB && record.Participant2ID == userA) {
			return record, nil
		}
	}
	return models.ContactConversation{}, gorm.ErrRecordNotFound
}

func (r *conversationRepoStub) ListByParticipant(ctx context.Context, userID string) ([]models.ContactConversation, error) {
	out := make([]models.ContactConversation, 0, len(r.records))
	for _, record := range r.records {
		if record.Slot(userID) != 0 && !record.ArchivedFor(userID) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *conversationRepoStub) ResetUnread(ctx context.Context, id uint, slot int) error {
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if slot == 1 {
		record.UnreadCount1 = 0
	} else {
		record.UnreadCount2 = 0
	}
	r.records[id] = record
	return nil
}

var (
	participantA = dto.ParticipantRef{ID: "startup-1", Name: "Asha", Role: "startup"}
	participantB = dto.ParticipantRef{ID: "investor-1", Name: "Ben", Role: "investor"}
)

func TestConversationFindOrCreateReusesPair(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	first, err := svc.FindOrCreate(context.Background(), participantA, participantB, "Intro")
	require.NoError(t, err)
	require.NotEmpty(t, first.ReferenceID)
	require.Equal(t, models.ConversationDirect, first.ConversationType)

	// Reversed order resolves to the same conversation.
	second, err := svc.FindOrCreate(context.Background(), participantB, participantA, "")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.records, 1)
}

func TestConversationApplyMessageIncrementsRecipientOnly(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	conversation, err := svc.FindOrCreate(context.Background(), participantA, participantB, "")
	require.NoError(t, err)

	updated, err := svc.ApplyMessage(context.Background(), models.ContactMessage{
		ConversationID: conversation.ID,
		SenderID:       participantA.ID,
		Content:        "hello",
	})
	require.NoError(t, err)
	require.Equal(t, 0, updated.UnreadCount1)
	require.Equal(t, 1, updated.UnreadCount2)
	require.Equal(t, "hello", updated.LastMessageContent)
	require.Equal(t, participantA.ID, updated.LastMessageSender)
	require.NotNil(t, updated.LastMessageAt)

	// A reply flows the other way.
	updated, err = svc.ApplyMessage(context.Background(), models.ContactMessage{
		ConversationID: conversation.ID,
		SenderID:       participantB.ID,
		Content:        "hi back",
	})
	require.NoError(t, err)
	require.Equal(t, 1, updated.UnreadCount1)
	require.Equal(t, 1, updated.UnreadCount2)
}

func TestConversationApplyMessageRejectsOutsider(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	conversation, err := svc.FindOrCreate(context.Background(), participantA, participantB, "")
	require.NoError(t, err)

	_, err = svc.ApplyMessage(context.Background(), models.ContactMessage{
		ConversationID: conversation.ID,
		SenderID:       "intruder",
		Content:        "hi",
	})
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestConversationArchivePerParticipant(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	conversation, err := svc.FindOrCreate(context.Background(), participantA, participantB, "")
	require.NoError(t, err)

	archived, err := svc.Archive(context.Background(), participantA.ID, conversation.ID)
	require.NoError(t, err)
	require.True(t, archived.IsArchived)

	// The counterpart still sees the conversation unarchived.
	listB, err := svc.List(context.Background(), participantB.ID)
	require.NoError(t, err)
	require.Len(t, listB, 1)
	require.False(t, listB[0].IsArchived)

	listA, err := svc.List(context.Background(), participantA.ID)
	require.NoError(t, err)
	require.Empty(t, listA)

	restored, err := svc.Unarchive(context.Background(), participantA.ID, conversation.ID)
	require.NoError(t, err)
	require.False(t, restored.IsArchived)
}

func TestConversationMarkReadResetsOwnCounter(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	conversation, err := svc.FindOrCreate(context.Background(), participantA, participantB, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.ApplyMessage(context.Background(), models.ContactMessage{
			ConversationID: conversation.ID,
			SenderID:       participantA.ID,
			Content:        "ping",
		})
		require.NoError(t, err)
	}

	total, err := svc.UnreadTotal(context.Background(), participantB.ID)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	read, err := svc.MarkRead(context.Background(), participantB.ID, conversation.ID)
	require.NoError(t, err)
	require.Equal(t, 0, read.UnreadCount)

	// Repeated calls stay at zero.
	read, err = svc.MarkRead(context.Background(), participantB.ID, conversation.ID)
	require.NoError(t, err)
	require.Equal(t, 0, read.UnreadCount)

	total, err = svc.UnreadTotal(context.Background(), participantB.ID)
	require.NoError(t, err)
	require.Equal(t, 0, total)
}

func TestConversationGetChecksMembership(t *testing.T) {
	repo := newConversationRepoStub()
	svc := NewConversationService(repo, testLogger())

	conversation, err := svc.FindOrCreate(context.Background(), participantA, participantB, "")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "intruder", conversation.ID)
	require.ErrorIs(t, err, ErrNotParticipant)

	found, err := svc.Get(context.Background(), participantA.ID, conversation.ID)
	require.NoError(t, err)
	require.Equal(t, conversation.ID, found.ID)
}
