package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func newSessionService(t *testing.T) (*ReadingSessionService, *PostgresService) {
	t.Helper()

	sqlSvc := NewPostgresServiceFromDB(newTestDB(t))
	return NewReadingSessionService(sqlSvc, 7*24*time.Hour), sqlSvc
}

func TestGetOrCreateSession_CreatesThenReuses(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	first, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.False(t, first.IsCompleted)

	second, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-2", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "chunk-2", second.ChunkID)

	// The moved chunk pointer is durable, not just in the returned value.
	stored, err := sqlSvc.GetReadingSession(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "chunk-2", stored.ChunkID)

	var count int64
	require.NoError(t, sqlSvc.Db().Model(&model.ReadingSession{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetOrCreateSession_PerUserAndText(t *testing.T) {
	svc, _ := newSessionService(t)

	a, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)
	b, err := svc.GetOrCreateSession("user-2", "text-1", "chunk-1", "")
	require.NoError(t, err)
	c, err := svc.GetOrCreateSession("user-1", "text-2", "chunk-9", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestGetOrCreateSession_NewSessionAfterCompletion(t *testing.T) {
	svc, _ := newSessionService(t)

	first, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.CompleteSession(first.ID, "user-1"))

	second, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetOrCreateSession_InitialQuestionRecorded(t *testing.T) {
	svc, _ := newSessionService(t)

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "What happened first?")
	require.NoError(t, err)

	messages, err := svc.GetConversationHistory(session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, shared.RoleAssistant, messages[0].Role)
	assert.Equal(t, shared.MessageTypeQuestion, messages[0].Type)
	assert.Equal(t, "What happened first?", messages[0].Content)
}

func TestAppendMessage_PreservesOrder(t *testing.T) {
	svc, _ := newSessionService(t)

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleSystem, "passage", shared.MessageTypeChunk))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "q1", shared.MessageTypeQuestion))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleUser, "a1", shared.MessageTypeAnswer))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "good", shared.MessageTypeFeedback))

	messages, err := svc.GetConversationHistory(session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "passage", messages[0].Content)
	assert.Equal(t, "q1", messages[1].Content)
	assert.Equal(t, "a1", messages[2].Content)
	assert.Equal(t, "good", messages[3].Content)
}

func TestAppendMessage_SlidesExpiry(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleUser, "a", shared.MessageTypeAnswer))

	stored, err := sqlSvc.GetReadingSession(session.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(48*time.Hour).Add(svc.TTL()), stored.ExpiresAt, time.Second)
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	svc, _ := newSessionService(t)

	err := svc.AppendMessage("missing", shared.RoleUser, "a", shared.MessageTypeAnswer)
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestGetConversationHistory_UnknownSession(t *testing.T) {
	svc, _ := newSessionService(t)

	_, err := svc.GetConversationHistory("missing")
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestGetLastQuestion(t *testing.T) {
	svc, _ := newSessionService(t)

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	question, err := svc.GetLastQuestion(session.ID)
	require.NoError(t, err)
	assert.Empty(t, question)

	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "q1", shared.MessageTypeQuestion))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleUser, "a1", shared.MessageTypeAnswer))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "q2", shared.MessageTypeQuestion))
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "well done", shared.MessageTypeFeedback))

	question, err = svc.GetLastQuestion(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "q2", question)
}

func TestCompleteSession_OwnershipMissIsSilent(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	// Wrong owner and unknown id both no-op without error.
	require.NoError(t, svc.CompleteSession(session.ID, "user-2"))
	require.NoError(t, svc.CompleteSession("missing", "user-1"))

	stored, err := sqlSvc.GetReadingSession(session.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)

	require.NoError(t, svc.CompleteSession(session.ID, "user-1"))
	stored, err = sqlSvc.GetReadingSession(session.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
}

func TestSweepExpiredSessions(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	live, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	expired, err := svc.GetOrCreateSession("user-2", "text-1", "chunk-1", "")
	require.NoError(t, err)
	expiredCompleted, err := svc.GetOrCreateSession("user-3", "text-1", "chunk-1", "")
	require.NoError(t, err)
	require.NoError(t, svc.CompleteSession(expiredCompleted.ID, "user-3"))

	// Age two of the three past their expiry.
	past := base.Add(-time.Hour)
	require.NoError(t, sqlSvc.Db().Model(&model.ReadingSession{}).
		Where("id IN ?", []string{expired.ID, expiredCompleted.ID}).
		Update("expires_at", past).Error)

	swept, err := svc.SweepExpiredSessions()
	require.NoError(t, err)
	assert.EqualValues(t, 2, swept)

	_, err = sqlSvc.GetReadingSession(live.ID)
	assert.NoError(t, err)
	_, err = sqlSvc.GetReadingSession(expired.ID)
	assert.Error(t, err)
	_, err = sqlSvc.GetReadingSession(expiredCompleted.ID)
	assert.Error(t, err)
}

func TestSweepRunsOnCreatePath(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	stale, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(8 * 24 * time.Hour) }

	fresh, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	_, err = sqlSvc.GetReadingSession(stale.ID)
	assert.Error(t, err)
}

func TestCorruptTranscriptTreatedAsEmpty(t *testing.T) {
	svc, sqlSvc := newSessionService(t)

	session, err := svc.GetOrCreateSession("user-1", "text-1", "chunk-1", "")
	require.NoError(t, err)

	require.NoError(t, sqlSvc.Db().Model(&model.ReadingSession{}).
		Where("id = ?", session.ID).
		Update("conversation_context", []byte("{not json")).Error)

	messages, err := svc.GetConversationHistory(session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Appending over a corrupt transcript starts a fresh one.
	require.NoError(t, svc.AppendMessage(session.ID, shared.RoleAssistant, "q1", shared.MessageTypeQuestion))
	messages, err = svc.GetConversationHistory(session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "q1", messages[0].Content)
}
