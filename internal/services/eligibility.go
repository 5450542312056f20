package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// Eligibility decision statuses.
const (
	StatusApproved              = "approved"
	StatusConditionallyApproved = "conditionally_approved"
	StatusRejected              = "rejected"
)

// DefaultTenureMonths is assumed when the customer has not picked one.
const DefaultTenureMonths = 60

// EligibilityResult is the outcome of the risk rules for one request.
type EligibilityResult struct {
	Eligible           bool     `json:"eligible"`
	Status             string   `json:"status"`
	Message            string   `json:"message"`
	Reason             string   `json:"reason,omitempty"`
	RequestedAmount    float64  `json:"requested_amount,omitempty"`
	PreApprovedLimit   float64  `json:"pre_approved_limit"`
	MaxEligible        float64  `json:"max_eligible,omitempty"`
	CreditScore        int      `json:"credit_score,omitempty"`
	InterestRate       float64  `json:"interest_rate,omitempty"`
	TenureMonths       int      `json:"tenure_months,omitempty"`
	EMI                float64  `json:"emi,omitempty"`
	Salary             *float64 `json:"salary,omitempty"`
	MaxAllowableEMI    float64  `json:"max_allowable_emi,omitempty"`
	ApprovalType       string   `json:"approval_type,omitempty"`
	RequiresSalarySlip bool     `json:"requires_salary_slip,omitempty"`
}

// EligibilityService applies the hard risk rules. The rules live here
// as code, not in the assistant prompt, so the model cannot talk its
// way around them.
type EligibilityService struct {
	customers *CustomerService
	offers    *OfferService
}

// NewEligibilityService creates a new eligibility service instance
func NewEligibilityService(customers *CustomerService, offers *OfferService) *EligibilityService {
	return &EligibilityService{customers: customers, offers: offers}
}

// Check runs the risk rules for a loan request, in order:
//  1. unknown customer rejects
//  2. credit score below 700 rejects
//  3. amount above twice the pre-approved limit rejects
//  4. amount within the pre-approved limit approves instantly
//  5. otherwise conditional approval, with an EMI-to-salary cap of 50%
//     when the salary is on record
func (s *EligibilityService) Check(customerID string, requestedAmount float64, tenureMonths int) (*EligibilityResult, error) {
	if tenureMonths <= 0 {
		tenureMonths = DefaultTenureMonths
	}
	log.Printf("[SERVICE] CheckEligibility called - customer_id: %s, amount: ₹%.0f, tenure: %d months",
		customerID, requestedAmount, tenureMonths)

	customer, err := s.customers.GetByID(customerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("[SERVICE] CheckEligibility - customer not found: %s", customerID)
			return &EligibilityResult{
				Eligible: false,
				Status:   StatusRejected,
				Message:  "Customer not found",
				Reason:   "Customer ID invalid",
			}, nil
		}
		return nil, err
	}

	creditScore := customer.CreditScore
	limit := customer.PreApprovedLimit

	if creditScore < 700 {
		log.Printf("[SERVICE] CheckEligibility - REJECTED: credit score %d < 700", creditScore)
		return &EligibilityResult{
			Eligible:         false,
			Status:           StatusRejected,
			Message:          "Loan application rejected",
			Reason:           fmt.Sprintf("Credit score %d is below minimum requirement of 700", creditScore),
			CreditScore:      creditScore,
			PreApprovedLimit: limit,
		}, nil
	}

	if limit > 0 && requestedAmount > 2*limit {
		log.Printf("[SERVICE] CheckEligibility - REJECTED: amount ₹%.0f > 2x limit ₹%.0f", requestedAmount, 2*limit)
		return &EligibilityResult{
			Eligible:         false,
			Status:           StatusRejected,
			Message:          "Loan application rejected",
			Reason:           fmt.Sprintf("Requested amount ₹%.0f exceeds maximum eligible limit of ₹%.0f", requestedAmount, 2*limit),
			RequestedAmount:  requestedAmount,
			PreApprovedLimit: limit,
			MaxEligible:      2 * limit,
		}, nil
	}

	rate := s.offers.ResolveRate(creditScore, requestedAmount)
	emi, err := CalculateEMI(requestedAmount, tenureMonths, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMI: %w", err)
	}

	if requestedAmount <= limit {
		log.Printf("[SERVICE] CheckEligibility - INSTANT APPROVAL: amount ₹%.0f <= limit ₹%.0f", requestedAmount, limit)
		return &EligibilityResult{
			Eligible:         true,
			Status:           StatusApproved,
			Message:          "Loan approved instantly",
			RequestedAmount:  requestedAmount,
			PreApprovedLimit: limit,
			CreditScore:      creditScore,
			InterestRate:     rate,
			TenureMonths:     tenureMonths,
			EMI:              emi.EMI,
			ApprovalType:     "instant",
		}, nil
	}

	if customer.Salary == nil {
		// Salary not on record, salary slip covers the affordability check
		log.Printf("[SERVICE] CheckEligibility - CONDITIONAL APPROVAL: salary verification required")
		return &EligibilityResult{
			Eligible:           true,
			Status:             StatusConditionallyApproved,
			Message:            "Loan conditionally approved - salary slip verification required",
			RequestedAmount:    requestedAmount,
			PreApprovedLimit:   limit,
			CreditScore:        creditScore,
			InterestRate:       rate,
			TenureMonths:       tenureMonths,
			EMI:                emi.EMI,
			ApprovalType:       "conditional",
			RequiresSalarySlip: true,
		}, nil
	}

	maxAllowableEMI := *customer.Salary * 0.5
	if emi.EMI <= maxAllowableEMI {
		log.Printf("[SERVICE] CheckEligibility - CONDITIONAL APPROVAL: EMI ₹%.2f <= 50%% salary (₹%.2f)", emi.EMI, maxAllowableEMI)
		return &EligibilityResult{
			Eligible:           true,
			Status:             StatusConditionallyApproved,
			Message:            "Loan conditionally approved - salary slip verification required",
			RequestedAmount:    requestedAmount,
			PreApprovedLimit:   limit,
			CreditScore:        creditScore,
			InterestRate:       rate,
			TenureMonths:       tenureMonths,
			EMI:                emi.EMI,
			Salary:             customer.Salary,
			MaxAllowableEMI:    maxAllowableEMI,
			ApprovalType:       "conditional",
			RequiresSalarySlip: true,
		}, nil
	}

	log.Printf("[SERVICE] CheckEligibility - REJECTED: EMI ₹%.2f > 50%% salary (₹%.2f)", emi.EMI, maxAllowableEMI)
	return &EligibilityResult{
		Eligible:        false,
		Status:          StatusRejected,
		Message:         "Loan application rejected",
		Reason:          fmt.Sprintf("EMI ₹%.2f exceeds 50%% of salary (₹%.2f)", emi.EMI, maxAllowableEMI),
		RequestedAmount: requestedAmount,
		EMI:             emi.EMI,
		Salary:          customer.Salary,
		MaxAllowableEMI: maxAllowableEMI,
	}, nil
}
