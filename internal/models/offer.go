package models

import (
	"gorm.io/gorm"
)

// OfferTemplate is one rate-card row. Read-only reference data maintained
// outside this service.
type OfferTemplate struct {
	gorm.Model
	Name             string  `json:"name"`
	MinCreditScore   int     `json:"min_credit_score"`
	MaxCreditScore   int     `json:"max_credit_score"`
	MinAmount        float64 `json:"min_amount"`
	MaxAmount        float64 `json:"max_amount"`
	MinTenureMonths  int     `json:"min_tenure_months"`
	MaxTenureMonths  int     `json:"max_tenure_months"`
	BaseRate         float64 `json:"base_rate"`
	ProcessingFeePct float64 `json:"processing_fee_pct"`
	Active           bool    `json:"active" gorm:"default:true"`
}
