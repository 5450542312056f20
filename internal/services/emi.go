package services

import (
	"fmt"
	"math"
)

// EMIResult holds the amortization figures for a loan. All monetary
// values are rounded to 2 decimal places.
type EMIResult struct {
	LoanAmount    float64 `json:"loan_amount"`
	TenureMonths  int     `json:"tenure_months"`
	InterestRate  float64 `json:"interest_rate"`
	EMI           float64 `json:"emi"`
	TotalAmount   float64 `json:"total_amount"`
	TotalInterest float64 `json:"total_interest"`
}

// CalculateEMI computes the equated monthly installment for a loan.
// Formula: EMI = P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate.
func CalculateEMI(loanAmount float64, tenureMonths int, interestRate float64) (EMIResult, error) {
	if loanAmount <= 0 || tenureMonths <= 0 || interestRate <= 0 {
		return EMIResult{}, fmt.Errorf("invalid input parameters")
	}

	monthlyRate := interestRate / (12 * 100)
	compound := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := round2(loanAmount * monthlyRate * compound / (compound - 1))
	// totals derive from the rounded EMI so the figures a customer sees
	// add up to the cent
	totalAmount := round2(emi * float64(tenureMonths))

	return EMIResult{
		LoanAmount:    loanAmount,
		TenureMonths:  tenureMonths,
		InterestRate:  interestRate,
		EMI:           emi,
		TotalAmount:   totalAmount,
		TotalInterest: round2(totalAmount - loanAmount),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
