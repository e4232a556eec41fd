package dto

// ==================== QUESTION REQUEST DTOs ====================

type GenerateQuestionRequest struct {
	TextID  string `json:"text_id" validate:"required" example:"0190c3a2-..."`
	ChunkID string `json:"chunk_id" validate:"required" example:"0190c3a2-..."`
}

func (r GenerateQuestionRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SubmitAnswerRequest struct {
	TextID  string `json:"text_id" validate:"required" example:"0190c3a2-..."`
	ChunkID string `json:"chunk_id" validate:"required" example:"0190c3a2-..."`
	Answer  string `json:"answer" validate:"required,min=1" example:"The old man was fishing alone."`
}

func (r SubmitAnswerRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== QUESTION RESPONSE DTOs ====================

type QuestionResponse struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type AnswerFeedbackResponse struct {
	SessionID        string `json:"session_id"`
	Correct          bool   `json:"correct"`
	Feedback         string `json:"feedback"`
	FollowUpQuestion string `json:"follow_up_question,omitempty"`
}
