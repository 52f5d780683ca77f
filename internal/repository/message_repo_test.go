package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ksmp-platform/contact-api/internal/models"
)

func TestMessageRepositoryTranscriptChronological(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactMessageRepository(db)

	base := time.Now().Add(-time.Hour).UTC()
	second := models.ContactMessage{ConversationID: 7, SenderID: "user-b", RecipientID: "user-a", Content: "reply", CreatedAt: base.Add(time.Minute)}
	first := models.ContactMessage{ConversationID: 7, SenderID: "user-a", RecipientID: "user-b", Content: "hello", CreatedAt: base}
	other := models.ContactMessage{ConversationID: 8, SenderID: "user-a", RecipientID: "user-c", Content: "elsewhere", CreatedAt: base}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&other).Error)

	messages, err := repo.ListByConversation(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content, "transcript must be oldest first")
	require.Equal(t, "reply", messages[1].Content)

	latest, err := repo.LatestByConversation(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "reply", latest.Content)
}

func TestMessageRepositoryMarkReadIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactMessageRepository(db)

	message := models.ContactMessage{ConversationID: 1, SenderID: "user-a", RecipientID: "user-b", Content: "ping"}
	require.NoError(t, repo.Create(context.Background(), &message))

	read, err := repo.MarkRead(context.Background(), message.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	firstReadAt := *read.ReadAt

	again, err := repo.MarkRead(context.Background(), message.ID)
	require.NoError(t, err)
	require.True(t, again.IsRead)
	require.NotNil(t, again.ReadAt)
	require.Equal(t, firstReadAt, *again.ReadAt, "readAt must be set on the first call only")
}

func TestNotificationRepositoryListAndMarkRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactNotificationRepository(db)

	base := time.Now().Add(-time.Hour).UTC()
	older := models.ContactNotification{UserID: "user-a", Type: models.NotifyNewMessage, Title: "older", CreatedAt: base}
	newer := models.ContactNotification{UserID: "user-a", Type: models.NotifyNewContactRequest, Title: "newer", CreatedAt: base.Add(time.Minute)}
	foreign := models.ContactNotification{UserID: "user-b", Type: models.NotifyNewMessage, Title: "foreign", CreatedAt: base}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&foreign).Error)

	notifications, err := repo.ListByUser(context.Background(), "user-a", 0, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	require.Equal(t, "newer", notifications[0].Title)

	read, err := repo.MarkRead(context.Background(), older.ID, "user-a")
	require.NoError(t, err)
	require.True(t, read.IsRead)
	firstReadAt := read.ReadAt

	again, err := repo.MarkRead(context.Background(), older.ID, "user-a")
	require.NoError(t, err)
	require.Equal(t, firstReadAt, again.ReadAt)

	_, err = repo.MarkRead(context.Background(), older.ID, "user-b")
	require.Error(t, err, "marking another user's notification must fail")
}
