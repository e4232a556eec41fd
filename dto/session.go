package dto

import (
	"time"

	"github.com/student-reader/reader_api/model"
)

type SessionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TextID      string    `json:"text_id"`
	ChunkID     string    `json:"chunk_id"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ConversationHistoryResponse struct {
	SessionID string                      `json:"session_id"`
	Messages  []model.ConversationMessage `json:"messages"`
}
