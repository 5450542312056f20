package models

import (
	"time"

	"gorm.io/gorm"
)

// OTP is a one-time code issued for phone verification.
type OTP struct {
	gorm.Model
	Phone      string    `gorm:"not null;index"`
	Code       string    `gorm:"not null"`
	Purpose    string    `gorm:"not null"` // "phone_verification"
	ExpiresAt  time.Time `gorm:"not null"`
	VerifiedAt *time.Time
	Attempts   int  `gorm:"default:0"`
	IsUsed     bool `gorm:"default:false"`
}
