package dto

import "time"

// ==================== TEST REQUEST DTOs ====================

type GenerateTestRequest struct {
	TextID string `json:"text_id" validate:"required" example:"0190c3a2-..."`
}

func (r GenerateTestRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SubmitTestRequest struct {
	TextID  string            `json:"text_id" validate:"required" example:"0190c3a2-..."`
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

func (r SubmitTestRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== TEST RESPONSE DTOs ====================

type TestQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

type TestQuestionsResponse struct {
	TextID    string         `json:"text_id"`
	SessionID string         `json:"session_id"`
	Questions []TestQuestion `json:"questions"`
}

type AnswerFeedback struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Feedback   string `json:"feedback"`
}

type TestResultResponse struct {
	TextID         string           `json:"text_id"`
	Passed         bool             `json:"passed"`
	CorrectAnswers int              `json:"correct_answers"`
	Score          float64          `json:"score"`
	Feedback       []AnswerFeedback `json:"feedback"`
}

// ==================== COMPLETION DTOs ====================

type CompletionFilterRequest struct {
	StudentName string `query:"student_name"`
	TextTitle   string `query:"text_title"`
	Passed      *bool  `query:"passed"`
	FromDate    string `query:"from_date"`
	ToDate      string `query:"to_date"`
	Skip        int    `query:"skip"`
	Limit       int    `query:"limit"`
}

type CompletionResponse struct {
	ID             string    `json:"id"`
	StudentName    string    `json:"student_name"`
	StudentEmail   string    `json:"student_email"`
	TextTitle      string    `json:"text_title"`
	CompletedAt    time.Time `json:"completed_at"`
	Passed         bool      `json:"passed"`
	AIFeedback     string    `json:"ai_feedback"`
	CorrectAnswers int       `json:"correct_answers"`
}
