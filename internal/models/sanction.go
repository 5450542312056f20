package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Sanction lifecycle statuses.
const (
	SanctionStatusPending   = "pending"
	SanctionStatusActive    = "active"
	SanctionStatusExpired   = "expired"
	SanctionStatusDisbursed = "disbursed"
)

// Sanction is the immutable approval record created when a loan is
// sanctioned. Only the lifecycle status may change after creation.
type Sanction struct {
	gorm.Model
	SanctionID        string  `json:"sanction_id" gorm:"uniqueIndex"`
	CustomerID        string  `json:"customer_id" gorm:"index"`
	SessionID         string  `json:"session_id" gorm:"index"`
	CustomerName      string  `json:"customer_name"`
	LoanAmount        float64 `json:"loan_amount"`
	TenureMonths      int     `json:"tenure_months"`
	InterestRate      float64 `json:"interest_rate"`
	EMI               float64 `json:"emi"`
	TotalAmount       float64 `json:"total_amount"`
	TotalInterest     float64 `json:"total_interest"`
	ProcessingFee     float64 `json:"processing_fee"`
	ProcessingFeePct  float64 `json:"processing_fee_pct"`
	AccountNumber     string  `json:"account_number"`
	IFSCCode          string  `json:"ifsc_code"`
	AccountHolderName string  `json:"account_holder_name"`
	BankName          string  `json:"bank_name"`
	ValidityDays      int     `json:"validity_days" gorm:"default:30"`
	Status            string  `json:"status" gorm:"default:active"`
}

func (s *Sanction) BeforeCreate(tx *gorm.DB) error {
	if s.SanctionID == "" {
		s.SanctionID = fmt.Sprintf("SAN%d", time.Now().UnixNano())
	}
	return nil
}
