package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

// TestService runs the end-of-text comprehension test: question generation
// from sampled excerpts, grading, and the durable completion record. A
// student's completion row keeps their best attempt; later attempts only
// overwrite it when they score strictly more correct answers.
type TestService struct {
	appContext.DefaultService

	sqlSvc     *PostgresService
	sessionSvc *ReadingSessionService
	ai         AIClient

	now func() time.Time
}

const TEST_SVC = "test_svc"

// Excerpts fed to the model are sampled, not the whole text.
const maxTestExcerpts = 3

func (svc TestService) Id() string {
	return TEST_SVC
}

// NewTestService wires the service outside the runtime container. Used by tests.
func NewTestService(sqlSvc *PostgresService, sessionSvc *ReadingSessionService, ai AIClient) *TestService {
	return &TestService{sqlSvc: sqlSvc, sessionSvc: sessionSvc, ai: ai, now: time.Now}
}

func (svc *TestService) Configure(ctx *appContext.Context) error {
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *TestService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*ReadingSessionService)
	svc.ai = svc.Service(AI_SVC).(*AIService)
	return nil
}

// GenerateTest builds the final test for a text from up to three randomly
// sampled chunks and records the generated questions in the session
// transcript so grading can recover them later.
func (svc *TestService) GenerateTest(ctx context.Context, userID string, req dto.GenerateTestRequest) (*dto.TestQuestionsResponse, error) {
	text, err := svc.sqlSvc.GetText(req.TextID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return nil, shared.NewNotFoundError(err, "Text not found")
		}
		return nil, err
	}

	chunks, err := svc.sqlSvc.GetChunksByText(req.TextID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, shared.NewBadRequestError(nil, "Text has no content to test on")
	}

	excerpts := sampleExcerpts(chunks, maxTestExcerpts)

	questions, err := svc.ai.GenerateTest(ctx, text.Title, excerpts)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate test questions")
	}

	// The test ends the read-through, so the session pointer lands on the
	// final chunk.
	lastChunk := chunks[len(chunks)-1]
	session, err := svc.sessionSvc.GetOrCreateSession(userID, req.TextID, lastChunk.ID, "")
	if err != nil {
		return nil, err
	}

	raw, err := sonic.Marshal(questions)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to encode test questions")
	}
	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleSystem, string(raw), shared.MessageTypeTestGeneration); err != nil {
		return nil, err
	}

	return &dto.TestQuestionsResponse{
		TextID:    req.TextID,
		SessionID: session.ID,
		Questions: questions,
	}, nil
}

// SubmitTest grades the student's answers against the most recently generated
// test, records the verdict in the transcript, reconciles the completion
// record and completes the session.
func (svc *TestService) SubmitTest(ctx context.Context, userID string, req dto.SubmitTestRequest) (*dto.TestResultResponse, error) {
	session, err := svc.sqlSvc.GetActiveReadingSession(userID, req.TextID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewBadRequestError(err, "No active reading session for this text")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	questions, err := svc.lastGeneratedTest(session.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, shared.NewBadRequestError(nil, "No test has been generated for this session")
	}

	chunks, err := svc.sqlSvc.GetChunksByText(req.TextID)
	if err != nil {
		return nil, err
	}
	excerpts := sampleExcerpts(chunks, maxTestExcerpts)

	answers := make(map[string]string, len(req.Answers))
	for id, answer := range req.Answers {
		answers[id] = CleanStudentAnswer(answer)
	}

	evaluation, err := svc.ai.EvaluateTest(ctx, excerpts, questions, answers)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to evaluate test")
	}

	raw, err := sonic.Marshal(evaluation)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to encode test evaluation")
	}
	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleSystem, string(raw), shared.MessageTypeTestEvaluation); err != nil {
		return nil, err
	}

	if err := svc.reconcileCompletion(userID, req.TextID, evaluation); err != nil {
		return nil, err
	}

	if err := svc.sessionSvc.CompleteSession(session.ID, userID); err != nil {
		log.WithFields(log.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("Failed to complete session after test submission")
	}

	score := float64(evaluation.CorrectAnswers) / float64(len(questions)) * 100

	return &dto.TestResultResponse{
		TextID:         req.TextID,
		Passed:         evaluation.Passed,
		CorrectAnswers: evaluation.CorrectAnswers,
		Score:          score,
		Feedback:       evaluation.Feedback,
	}, nil
}

// SearchCompletions lists completion records for teachers, newest first.
func (svc *TestService) SearchCompletions(req dto.CompletionFilterRequest) ([]dto.CompletionResponse, error) {
	return svc.sqlSvc.SearchCompletions(req)
}

// reconcileCompletion keeps the student's best attempt. A new attempt
// overwrites the stored record only when its correct-answer count is strictly
// greater; ties and regressions leave the record untouched.
func (svc *TestService) reconcileCompletion(studentID, textID string, evaluation *TestEvaluation) error {
	existing, err := svc.sqlSvc.GetReadingCompletion(studentID, textID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return svc.sqlSvc.HandleError(err)
		}
		completion := &model.ReadingCompletion{
			StudentID:      studentID,
			TextID:         textID,
			Passed:         evaluation.Passed,
			CorrectAnswers: evaluation.CorrectAnswers,
			AIFeedback:     evaluation.Summary,
			CompletedAt:    svc.now(),
		}
		_, err := svc.sqlSvc.CreateReadingCompletion(completion)
		return err
	}

	if evaluation.CorrectAnswers <= existing.CorrectAnswers {
		return nil
	}

	existing.Passed = evaluation.Passed
	existing.CorrectAnswers = evaluation.CorrectAnswers
	existing.AIFeedback = evaluation.Summary
	existing.CompletedAt = svc.now()
	return svc.sqlSvc.UpdateReadingCompletion(existing)
}

// lastGeneratedTest recovers the question set from the newest
// test_generation transcript entry.
func (svc *TestService) lastGeneratedTest(sessionID string) ([]dto.TestQuestion, error) {
	conversation, err := svc.sessionSvc.GetConversationHistory(sessionID)
	if err != nil {
		return nil, err
	}

	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Type != shared.MessageTypeTestGeneration {
			continue
		}
		var questions []dto.TestQuestion
		if err := sonic.Unmarshal([]byte(conversation[i].Content), &questions); err != nil {
			log.WithFields(log.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Corrupt test generation entry, ignoring")
			return nil, nil
		}
		return questions, nil
	}
	return nil, nil
}

// sampleExcerpts joins up to max cleaned chunks, randomly sampled when the
// text has more.
func sampleExcerpts(chunks []model.TextChunk, max int) string {
	picked := chunks
	if len(chunks) > max {
		indices := rand.Perm(len(chunks))[:max]
		picked = make([]model.TextChunk, 0, max)
		for _, i := range indices {
			picked = append(picked, chunks[i])
		}
	}

	excerpts := make([]string, 0, len(picked))
	for _, chunk := range picked {
		excerpts = append(excerpts, CleanText(chunk.Content))
	}
	return strings.Join(excerpts, "\n\n---\n\n")
}
