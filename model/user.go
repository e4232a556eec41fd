package model

import "time"

type User struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"unique;not null"`
	Email          string    `json:"email" gorm:"unique;not null"`
	FullName       string    `json:"full_name" gorm:"not null"`
	HashedPassword string    `json:"-"`
	IsTeacher      bool      `json:"is_teacher" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AdminPrivilege struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	GrantedByID string    `json:"granted_by_id"`
	GrantReason string    `json:"grant_reason"`
	GrantedAt   time.Time `json:"granted_at" gorm:"not null"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
