package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
)

type AuthServiceInterface interface {
	RequestOTP(ctx context.Context, email string) (*dto.OTPRequestedResponse, error)
	VerifyOTP(ctx context.Context, email, otp string) (*dto.TokenResponse, error)
	Me(userID string) (*dto.UserResponse, error)
	InitiateRegistration(ctx context.Context, req dto.InitiateRegistrationRequest) (*dto.OTPRequestedResponse, error)
	CompleteRegistration(ctx context.Context, req dto.CompleteRegistrationRequest) (*dto.UserResponse, error)
	RequiredAuth() fiber.Handler
	RequireTeacher() fiber.Handler
	RequireAdmin() fiber.Handler
}

type TextServiceInterface interface {
	CreateText(teacherID string, req dto.CreateTextRequest) (*dto.TextResponse, error)
	DeleteText(textID string) error
	ListTeachers() ([]dto.TeacherResponse, error)
	GetTeacherTexts(teacherID string) ([]dto.TextResponse, error)
	GetFirstChunk(textID string) (*dto.ChunkResponse, error)
	GetNextChunk(textID, currentChunkID string) (*dto.ChunkResponse, error)
}

type SessionServiceInterface interface {
	GetConversationHistory(sessionID string) ([]model.ConversationMessage, error)
	CompleteSession(sessionID, userID string) error
}

type QuestionServiceInterface interface {
	GenerateQuestion(ctx context.Context, userID string, req dto.GenerateQuestionRequest) (*dto.QuestionResponse, error)
	SubmitAnswer(ctx context.Context, userID string, req dto.SubmitAnswerRequest) (*dto.AnswerFeedbackResponse, error)
}

type TestServiceInterface interface {
	GenerateTest(ctx context.Context, userID string, req dto.GenerateTestRequest) (*dto.TestQuestionsResponse, error)
	SubmitTest(ctx context.Context, userID string, req dto.SubmitTestRequest) (*dto.TestResultResponse, error)
	SearchCompletions(req dto.CompletionFilterRequest) ([]dto.CompletionResponse, error)
}

type AdminServiceInterface interface {
	ListUsers() ([]dto.UserResponse, error)
	GrantAdmin(grantedByID string, req dto.PrivilegeRequest) (*dto.AdminDetailsResponse, error)
	RevokeAdmin(revokedByID string, req dto.RevokePrivilegeRequest) error
}

type ChatServiceInterface interface {
	Chat(ctx context.Context, prompt string) (string, error)
}
