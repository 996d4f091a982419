package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityLog is one audited desk event: a login attempt, a lockout, a
// refused route or a plain API call.
type SecurityLog struct {
	gorm.Model
	EventType string `json:"event_type" gorm:"type:varchar(64);index"`
	UserID    string `json:"user_id" gorm:"type:varchar(64);index"`
	// Username is set when the caller is not yet known by id, as on a failed login.
	Username  string         `json:"username" gorm:"type:varchar(191);index"`
	Email     string         `json:"email" gorm:"type:varchar(191)"`
	Role      string         `json:"role" gorm:"type:varchar(16)"`
	IP        string         `json:"ip" gorm:"type:varchar(45);index"`
	Location  string         `json:"location" gorm:"type:varchar(255)"`
	UserAgent string         `json:"user_agent" gorm:"type:varchar(512)"`
	Resource  string         `json:"resource" gorm:"type:varchar(255)"`
	Message   string         `json:"message" gorm:"type:text"`
	Details   datatypes.JSON `json:"details" gorm:"type:json"`
}
