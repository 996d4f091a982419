package model

import "gorm.io/gorm"

// User is a desk account: an administrator, a doctor or a staff member.
type User struct {
	gorm.Model
	Name             string  `json:"name" gorm:"type:varchar(191);not null"`
	Email            string  `json:"email" gorm:"type:varchar(191);uniqueIndex"`
	Username         string  `json:"username" gorm:"type:varchar(191);uniqueIndex;not null"`
	Password         string  `json:"-" gorm:"type:varchar(255)"`
	PasswordSalt     string  `json:"-" gorm:"type:varchar(64)"`
	RoleID           uint32  `json:"role_id" gorm:"not null;index"`
	Role             string  `json:"role" gorm:"type:varchar(16);index"`
	Address          string  `json:"address"`
	Phone            string  `json:"phone" gorm:"type:varchar(20)"`
	NMCNumber        *string `json:"nmc_number" gorm:"column:nmc_number;type:varchar(10)"`
	Department       *string `json:"department" gorm:"type:varchar(100);index"`
	IsActive         bool    `json:"is_active" gorm:"not null;default:true"`
	RequiresPassword bool    `json:"requires_password" gorm:"not null;default:true"`
	FailedAttempts   int     `json:"-" gorm:"not null;default:0"`
	LockedUntil      *int64  `json:"-"`
}

// UserSummary is the row shape of the admin "All System Users" table.
type UserSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// DoctorSummary is the row shape of the admin doctor directory.
type DoctorSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	NMCNumber  string `json:"nmc_number" gorm:"column:nmc_number"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
}

// StaffSummary is the row shape of the admin staff directory.
type StaffSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	IsActive bool   `json:"is_active"`
}
