package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role ids are fixed so sessions can carry them without a lookup.
const (
	RoleAdmin  uint32 = 1
	RoleDoctor uint32 = 2
	RoleStaff  uint32 = 3
)

type Role struct {
	ID        uint32    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var seedRoles = []Role{
	{ID: RoleAdmin, Name: "Admin"},
	{ID: RoleDoctor, Name: "Doctor"},
	{ID: RoleStaff, Name: "Staff"},
}

// SeedRoles inserts the admin, doctor and staff roles if they are missing.
func SeedRoles(db *gorm.DB) error {
	for _, role := range seedRoles {
		var existing []Role
		res := db.Where("id = ?", role.ID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}

// RoleIDFromName maps "admin", "Doctor", "STAFF"... to a role id.
func RoleIDFromName(name string) (uint32, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin, true
	case "doctor":
		return RoleDoctor, true
	case "staff":
		return RoleStaff, true
	}
	return 0, false
}

// RoleName returns the lower-case name stored on users.role.
func RoleName(id uint32) string {
	switch id {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RoleStaff:
		return "staff"
	}
	return ""
}
