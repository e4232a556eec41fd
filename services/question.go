package services

import (
	"context"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

// QuestionService drives the per-chunk question/answer loop: it asks the
// model for a comprehension question about the chunk a student just read,
// grades the answer, and records every step in the session transcript in
// caller order (answer, then feedback, then any follow-up question).
type QuestionService struct {
	appContext.DefaultService

	sqlSvc     *PostgresService
	sessionSvc *ReadingSessionService
	ai         AIClient
}

const QUESTION_SVC = "question_svc"

func (svc QuestionService) Id() string {
	return QUESTION_SVC
}

// NewQuestionService wires the service outside the runtime container. Used by tests.
func NewQuestionService(sqlSvc *PostgresService, sessionSvc *ReadingSessionService, ai AIClient) *QuestionService {
	return &QuestionService{sqlSvc: sqlSvc, sessionSvc: sessionSvc, ai: ai}
}

func (svc *QuestionService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuestionService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*ReadingSessionService)
	svc.ai = svc.Service(AI_SVC).(*AIService)
	return nil
}

// GenerateQuestion records the chunk in the session transcript, asks the
// model for a question about it and records that too.
func (svc *QuestionService) GenerateQuestion(ctx context.Context, userID string, req dto.GenerateQuestionRequest) (*dto.QuestionResponse, error) {
	chunk, err := svc.sqlSvc.GetChunk(req.ChunkID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return nil, shared.NewNotFoundError(err, "Chunk not found")
		}
		return nil, err
	}
	if chunk.TextID != req.TextID {
		return nil, shared.NewBadRequestError(nil, "Chunk does not belong to this text")
	}

	session, err := svc.sessionSvc.GetOrCreateSession(userID, req.TextID, req.ChunkID, "")
	if err != nil {
		return nil, err
	}

	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleSystem, chunk.Content, shared.MessageTypeChunk); err != nil {
		return nil, err
	}

	question, err := svc.ai.GenerateQuestion(ctx, chunk.Content)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate question")
	}

	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleAssistant, question, shared.MessageTypeQuestion); err != nil {
		return nil, err
	}

	return &dto.QuestionResponse{
		SessionID: session.ID,
		Question:  question,
	}, nil
}

// SubmitAnswer grades a student's answer to the session's most recent
// question. The transcript records the answer, the feedback and, when the
// evaluator asks for one, the follow-up question, in that order. When the
// evaluator signals no follow-up is needed the session is completed.
func (svc *QuestionService) SubmitAnswer(ctx context.Context, userID string, req dto.SubmitAnswerRequest) (*dto.AnswerFeedbackResponse, error) {
	chunk, err := svc.sqlSvc.GetChunk(req.ChunkID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return nil, shared.NewNotFoundError(err, "Chunk not found")
		}
		return nil, err
	}

	session, err := svc.sessionSvc.GetOrCreateSession(userID, req.TextID, req.ChunkID, "")
	if err != nil {
		return nil, err
	}

	question, err := svc.sessionSvc.GetLastQuestion(session.ID)
	if err != nil {
		return nil, err
	}
	if question == "" {
		return nil, shared.NewBadRequestError(nil, "No question has been asked yet")
	}

	answer := CleanStudentAnswer(req.Answer)

	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleUser, answer, shared.MessageTypeAnswer); err != nil {
		return nil, err
	}

	evaluation, err := svc.ai.EvaluateAnswer(ctx, chunk.Content, question, answer)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to evaluate answer")
	}

	if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleAssistant, evaluation.Feedback, shared.MessageTypeFeedback); err != nil {
		return nil, err
	}

	if evaluation.FollowUpQuestion != "" {
		if err := svc.sessionSvc.AppendMessage(session.ID, shared.RoleAssistant, evaluation.FollowUpQuestion, shared.MessageTypeQuestion); err != nil {
			return nil, err
		}
	} else if evaluation.Correct {
		if err := svc.sessionSvc.CompleteSession(session.ID, userID); err != nil {
			log.WithFields(log.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Failed to complete session after final answer")
		}
	}

	return &dto.AnswerFeedbackResponse{
		SessionID:        session.ID,
		Correct:          evaluation.Correct,
		Feedback:         evaluation.Feedback,
		FollowUpQuestion: evaluation.FollowUpQuestion,
	}, nil
}
