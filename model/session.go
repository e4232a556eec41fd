package model

import (
	"encoding/json"
	"time"
)

// ConversationMessage is one entry of a session transcript. Role is one of
// shared.RoleSystem/RoleAssistant/RoleUser; Type tags what the entry records
// (chunk, question, answer, feedback, test_generation, test_evaluation).
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// ReadingSession is the single live conversational thread for a
// (student, text) pair. At most one row with IsCompleted=false may exist per
// pair; the partial unique index enforces it at the database level.
type ReadingSession struct {
	ID                  string          `json:"id" gorm:"primaryKey"`
	UserID              string          `json:"user_id" gorm:"not null;uniqueIndex:idx_active_reading_session,where:is_completed = false"`
	TextID              string          `json:"text_id" gorm:"not null;uniqueIndex:idx_active_reading_session,where:is_completed = false"`
	ChunkID             string          `json:"chunk_id"`
	ConversationContext json.RawMessage `json:"conversation_context" gorm:"not null"`
	IsCompleted         bool            `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt           time.Time       `json:"created_at" gorm:"not null"`
	ExpiresAt           time.Time       `json:"expires_at" gorm:"not null;index"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ReadingCompletion is the durable best attempt for a (student, text) pair,
// independent of any individual session. Overwritten only when a later
// attempt strictly improves CorrectAnswers.
type ReadingCompletion struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	StudentID      string    `json:"student_id" gorm:"not null;uniqueIndex:idx_student_text_completion"`
	TextID         string    `json:"text_id" gorm:"not null;uniqueIndex:idx_student_text_completion"`
	Passed         bool      `json:"passed" gorm:"not null"`
	CorrectAnswers int       `json:"correct_answers" gorm:"not null"`
	AIFeedback     string    `json:"ai_feedback"`
	CompletedAt    time.Time `json:"completed_at" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
