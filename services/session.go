package services

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

// ReadingSessionService owns the lifecycle of reading sessions: one active
// conversational thread per (student, text), a durable ordered transcript,
// sliding expiry, and the traffic-driven sweep of expired rows.
//
// Appends are a read-deserialize-append-serialize-write over the transcript
// column with no concurrency guard; two simultaneous appends to the same
// session can last-write-win. Known limitation, kept deliberately.
type ReadingSessionService struct {
	context.DefaultService

	sqlSvc        *PostgresService
	monitoringSvc *MonitoringService

	ttl time.Duration
	now func() time.Time
}

const SESSION_SVC = "session_svc"

const DefaultSessionTTLDays = 7

func (svc ReadingSessionService) Id() string {
	return SESSION_SVC
}

// NewReadingSessionService wires the service outside the runtime container.
// Used by tests.
func NewReadingSessionService(sqlSvc *PostgresService, ttl time.Duration) *ReadingSessionService {
	return &ReadingSessionService{sqlSvc: sqlSvc, ttl: ttl, now: time.Now}
}

func (svc *ReadingSessionService) Configure(ctx *context.Context) error {
	days := DefaultSessionTTLDays
	if v := os.Getenv("SESSION_TTL_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	svc.ttl = time.Duration(days) * 24 * time.Hour
	svc.now = time.Now

	return svc.DefaultService.Configure(ctx)
}

func (svc *ReadingSessionService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.monitoringSvc, _ = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

func (svc *ReadingSessionService) TTL() time.Duration {
	return svc.ttl
}

// GetOrCreateSession returns the single active session for (userID, textID),
// moving its chunk pointer to chunkID, or creates a fresh one when none
// exists. Expired rows are swept first, so cleanup cadence follows traffic.
// When a session is created and initialQuestion is non-empty it is recorded
// as the opening transcript entry.
func (svc *ReadingSessionService) GetOrCreateSession(userID, textID, chunkID, initialQuestion string) (*model.ReadingSession, error) {
	if swept, err := svc.SweepExpiredSessions(); err != nil {
		return nil, err
	} else if swept > 0 {
		log.WithField("count", swept).Info("Swept expired reading sessions")
	}

	session, err := svc.sqlSvc.GetActiveReadingSession(userID, textID)
	if err == nil {
		// The session follows the student through the text; every call is a
		// durable write even when the session already exists.
		session.ChunkID = chunkID
		if err := svc.sqlSvc.UpdateReadingSession(session); err != nil {
			return nil, err
		}
		return session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svc.sqlSvc.HandleError(err)
	}

	now := svc.now()
	transcript := []model.ConversationMessage{}
	if initialQuestion != "" {
		transcript = append(transcript, model.ConversationMessage{
			Role:    shared.RoleAssistant,
			Content: initialQuestion,
			Type:    shared.MessageTypeQuestion,
		})
	}

	raw, err := sonic.Marshal(transcript)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to encode conversation context")
	}

	session = &model.ReadingSession{
		UserID:              userID,
		TextID:              textID,
		ChunkID:             chunkID,
		ConversationContext: raw,
		IsCompleted:         false,
		CreatedAt:           now,
		ExpiresAt:           now.Add(svc.ttl),
	}

	return svc.sqlSvc.CreateReadingSession(session)
}

// AppendMessage adds one record to the session transcript, preserving
// insertion order, and slides the expiry forward to now+TTL.
func (svc *ReadingSessionService) AppendMessage(sessionID, role, content, msgType string) error {
	session, err := svc.sqlSvc.GetReadingSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError(err, "Session not found")
		}
		return svc.sqlSvc.HandleError(err)
	}

	conversation := svc.decodeTranscript(session)
	conversation = append(conversation, model.ConversationMessage{
		Role:    role,
		Content: content,
		Type:    msgType,
	})

	raw, err := sonic.Marshal(conversation)
	if err != nil {
		return shared.NewInternalError(err, "Failed to encode conversation context")
	}

	session.ConversationContext = raw
	session.ExpiresAt = svc.now().Add(svc.ttl)

	return svc.sqlSvc.UpdateReadingSession(session)
}

// GetConversationHistory returns the ordered transcript for the session.
func (svc *ReadingSessionService) GetConversationHistory(sessionID string) ([]model.ConversationMessage, error) {
	session, err := svc.sqlSvc.GetReadingSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Session not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	return svc.decodeTranscript(session), nil
}

// GetLastQuestion derives the most recent question from the transcript.
// Question text is never cached as a session field, it only lives in the
// transcript, so the lookup scans newest to oldest. Returns "" when the
// session holds no question yet.
func (svc *ReadingSessionService) GetLastQuestion(sessionID string) (string, error) {
	conversation, err := svc.GetConversationHistory(sessionID)
	if err != nil {
		return "", err
	}

	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Type == shared.MessageTypeQuestion {
			return conversation[i].Content, nil
		}
	}
	return "", nil
}

// CompleteSession marks the session inert. The session must belong to userID;
// an unknown id or a foreign owner affects nothing and is not an error, so
// duplicate completion calls stay idempotent.
func (svc *ReadingSessionService) CompleteSession(sessionID, userID string) error {
	return svc.sqlSvc.CompleteReadingSession(sessionID, userID)
}

// SweepExpiredSessions deletes every session past its expiry, completed or
// not. There is no timer; callers invoke it on the create path.
func (svc *ReadingSessionService) SweepExpiredSessions() (int64, error) {
	swept, err := svc.sqlSvc.DeleteExpiredReadingSessions(svc.now())
	if err == nil && swept > 0 && svc.monitoringSvc != nil {
		svc.monitoringSvc.RecordSweptSessions(swept)
	}
	return swept, err
}

// decodeTranscript never fails: corrupt history is treated as empty rather
// than blocking the student on it.
func (svc *ReadingSessionService) decodeTranscript(session *model.ReadingSession) []model.ConversationMessage {
	if len(session.ConversationContext) == 0 {
		return []model.ConversationMessage{}
	}

	var conversation []model.ConversationMessage
	if err := sonic.Unmarshal(session.ConversationContext, &conversation); err != nil {
		log.WithFields(log.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("Corrupt conversation context, treating as empty")
		return []model.ConversationMessage{}
	}
	if conversation == nil {
		return []model.ConversationMessage{}
	}
	return conversation
}
