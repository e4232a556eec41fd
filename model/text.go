package model

import "time"

type Text struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TeacherID string    `json:"teacher_id" gorm:"index"`
	Title     string    `json:"title" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TextChunk struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	TextID         string    `json:"text_id" gorm:"not null;index"`
	Content        string    `json:"content" gorm:"not null"`
	SequenceNumber int       `json:"sequence_number" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
}
