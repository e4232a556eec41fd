package dto

import "time"

// ==================== TEXT REQUEST DTOs ====================

type CreateTextRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255" example:"The Old Man and the Sea"`
	Content string `json:"content" validate:"required,min=1" example:"<chunk>He was an old man...</chunk><chunk>The fish moved steadily...</chunk>"`
}

func (r CreateTextRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== TEXT RESPONSE DTOs ====================

type TextResponse struct {
	ID         string    `json:"id"`
	TeacherID  string    `json:"teacher_id,omitempty"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type TeacherResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

type ChunkResponse struct {
	ChunkID        string `json:"chunk_id"`
	Content        string `json:"content"`
	SequenceNumber int    `json:"sequence_number"`
}
