package model

import "gorm.io/gorm"

const (
	PreferenceUsername = "user"
	PreferenceRole     = "role"
)

// Preference is a remembered login field for one client device.
type Preference struct {
	gorm.Model
	DeviceID string `json:"device_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_device_key"`
	Key      string `json:"key" gorm:"type:varchar(32);not null;uniqueIndex:idx_device_key"`
	Value    string `json:"value" gorm:"type:varchar(191)"`
}
