package model

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	SessionToken string    `json:"session_token" gorm:"type:varchar(512);not null;index"`
	ExpiresAt    time.Time `json:"expires_at"`
	ClientIP     string    `json:"client_ip" gorm:"type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"type:varchar(512)"`
}
