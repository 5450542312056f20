package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is a record from the onboarding system. Read-only to this
// service: customers are never created or modified by any handler.
type Customer struct {
	gorm.Model
	Name             string     `json:"name"`
	DOB              *time.Time `json:"dob"`
	City             string     `json:"city"`
	Phone            string     `json:"phone" gorm:"uniqueIndex"` // 10-digit, no +91 prefix
	Email            string     `json:"email"`
	Salary           *float64   `json:"salary"` // monthly, may be unknown
	PreApprovedLimit float64    `json:"pre_approved_limit"`
	Loans            []CustomerLoan `json:"current_loans" gorm:"foreignKey:CustomerID"`
}

// CustomerLoan is one existing loan on a customer's profile.
type CustomerLoan struct {
	gorm.Model
	CustomerID  uint    `json:"-" gorm:"index"`
	Type        string  `json:"type"` // "home", "car", "personal", ...
	EMI         float64 `json:"emi"`
	Outstanding float64 `json:"outstanding"`
}

// KYC is the identity-verification record keyed by PAN.
type KYC struct {
	gorm.Model
	Name        string     `json:"name"`
	PAN         string     `json:"pan" gorm:"uniqueIndex"`
	CreditScore int        `json:"credit_score"` // out of 900
	Phone       string     `json:"phone" gorm:"index"`
	Address     string     `json:"address"`
	DOB         *time.Time `json:"dob"`
}
