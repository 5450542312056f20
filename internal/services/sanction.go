package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
	"github.com/vittam-ai/vittam-backend/internal/utils"
)

// ProcessingFeePct is charged on every sanctioned loan.
const ProcessingFeePct = 3.5

// SanctionValidityDays is how long an issued sanction stays valid.
const SanctionValidityDays = 30

// BankDetails is the disbursement account supplied by the customer.
type BankDetails struct {
	AccountNumber     string `json:"account_number"`
	IFSCCode          string `json:"ifsc_code"`
	AccountHolderName string `json:"account_holder_name"`
	BankName          string `json:"bank_name,omitempty"`
}

// SanctionLetter is the rendered sanction with the persisted record's
// ID. The account number is masked everywhere in the letter.
type SanctionLetter struct {
	SanctionID          string      `json:"sanction_id"`
	CustomerID          string      `json:"customer_id"`
	CustomerName        string      `json:"customer_name"`
	LoanAmount          float64     `json:"loan_amount"`
	TenureMonths        int         `json:"tenure_months"`
	InterestRate        float64     `json:"interest_rate"`
	EMI                 float64     `json:"emi"`
	TotalAmount         float64     `json:"total_amount"`
	TotalInterest       float64     `json:"total_interest"`
	ProcessingFee       float64     `json:"processing_fee"`
	ProcessingFeePct    float64     `json:"processing_fee_pct"`
	DisbursementAccount string      `json:"disbursement_account"`
	BankDetails         BankDetails `json:"bank_details"`
	ValidityDays        int         `json:"validity_days"`
	TermsAndConditions  []string    `json:"terms_and_conditions"`
	Summary             string      `json:"summary"`
}

var sanctionTerms = []string{
	"Loan amount will be disbursed within 24-48 hours of document verification",
	"Interest rate is fixed for the entire tenure",
	"Prepayment charges apply as per policy",
	"Default in payment will attract penalty charges",
	"All disputes subject to jurisdiction of Mumbai courts",
}

// SanctionService issues sanction letters. All preconditions are
// enforced here, the assistant cannot skip them: the customer must
// exist, the session must have reached underwriting, every uploaded
// document must be verified and the bank details must be complete.
type SanctionService struct {
	store     storage.Store
	customers *CustomerService
	documents *DocumentService
}

// NewSanctionService creates a new sanction service instance
func NewSanctionService(store storage.Store, customers *CustomerService, documents *DocumentService) *SanctionService {
	return &SanctionService{store: store, customers: customers, documents: documents}
}

// Issue creates the sanction record and renders the letter. Issuing is
// idempotent per session: a second call returns the letter for the
// already active sanction instead of creating another one.
func (s *SanctionService) Issue(sessionID, customerID string, loanAmount float64, tenureMonths int, interestRate float64, bank BankDetails) (*SanctionLetter, error) {
	log.Printf("[SERVICE] IssueSanction called - customer_id: %s, amount: ₹%.0f, tenure: %d months, rate: %.2f%%",
		customerID, loanAmount, tenureMonths, interestRate)

	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != models.StageUnderwriting && session.Stage != models.StageSanction {
		return nil, fmt.Errorf("sanction cannot be issued before underwriting is complete")
	}

	customer, err := s.customers.GetByID(customerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("customer not found")
		}
		return nil, err
	}

	status, err := s.documents.Status(sessionID)
	if err != nil {
		return nil, err
	}
	if !status.AllVerified {
		return nil, fmt.Errorf("all documents must be verified before a sanction can be issued (%d verified, %d pending, %d rejected)",
			status.Verified, status.Pending, status.Rejected)
	}

	var missing []string
	if bank.AccountNumber == "" {
		missing = append(missing, "account_number")
	}
	if bank.IFSCCode == "" {
		missing = append(missing, "ifsc_code")
	}
	if bank.AccountHolderName == "" {
		missing = append(missing, "account_holder_name")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required bank details: %s", strings.Join(missing, ", "))
	}

	if existing, err := s.store.GetActiveSanctionBySession(sessionID); err == nil {
		log.Printf("[SERVICE] IssueSanction - returning existing sanction %s for session %s", existing.SanctionID, sessionID)
		return s.renderLetter(existing), nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	emi, err := CalculateEMI(loanAmount, tenureMonths, interestRate)
	if err != nil {
		return nil, err
	}

	sanction := &models.Sanction{
		SanctionID:        utils.GenerateSecureID("SAN"),
		CustomerID:        customerID,
		SessionID:         sessionID,
		CustomerName:      customer.Name,
		LoanAmount:        loanAmount,
		TenureMonths:      tenureMonths,
		InterestRate:      interestRate,
		EMI:               emi.EMI,
		TotalAmount:       emi.TotalAmount,
		TotalInterest:     emi.TotalInterest,
		ProcessingFee:     round2(loanAmount * ProcessingFeePct / 100),
		ProcessingFeePct:  ProcessingFeePct,
		AccountNumber:     bank.AccountNumber,
		IFSCCode:          strings.ToUpper(bank.IFSCCode),
		AccountHolderName: bank.AccountHolderName,
		BankName:          bank.BankName,
		ValidityDays:      SanctionValidityDays,
		Status:            models.SanctionStatusActive,
	}
	if _, err := s.store.CreateSanction(sanction); err != nil {
		return nil, fmt.Errorf("failed to create sanction record: %w", err)
	}

	if session.Stage != models.StageSanction {
		if err := session.AdvanceTo(models.StageSanction); err != nil {
			return nil, err
		}
		if err := s.store.UpdateSession(session); err != nil {
			return nil, err
		}
	}

	log.Printf("[SERVICE] IssueSanction - sanction created: %s for customer: %s", sanction.SanctionID, customerID)
	return s.renderLetter(sanction), nil
}

// GetLetter re-renders the letter for an existing sanction.
func (s *SanctionService) GetLetter(sanctionID string) (*SanctionLetter, error) {
	sanction, err := s.store.GetSanction(sanctionID)
	if err != nil {
		return nil, err
	}
	return s.renderLetter(sanction), nil
}

func (s *SanctionService) renderLetter(sanction *models.Sanction) *SanctionLetter {
	masked := MaskAccountNumber(sanction.AccountNumber)
	years := sanction.TenureMonths / 12
	months := sanction.TenureMonths % 12

	summary := fmt.Sprintf(`SANCTION LETTER

Dear %s,

We are pleased to inform you that your Personal Loan application has been approved.

Loan Details:
- Sanctioned Amount: ₹%.2f
- Tenure: %d months (%d years %d months)
- Interest Rate: %.2f%% per annum
- EMI: ₹%.2f
- Total Amount Payable: ₹%.2f
- Processing Fee: ₹%.2f (%.1f%% + GST)

Disbursement Account:
- Account Holder: %s
- Account Number: %s
- IFSC Code: %s

This sanction is valid for %d days from the date of issue.

Please contact us to complete the disbursement process.

Best Regards,
Vittam Personal Loans Team`,
		sanction.CustomerName, sanction.LoanAmount, sanction.TenureMonths, years, months,
		sanction.InterestRate, sanction.EMI, sanction.TotalAmount,
		sanction.ProcessingFee, sanction.ProcessingFeePct,
		sanction.AccountHolderName, masked, sanction.IFSCCode, sanction.ValidityDays)

	return &SanctionLetter{
		SanctionID:          sanction.SanctionID,
		CustomerID:          sanction.CustomerID,
		CustomerName:        sanction.CustomerName,
		LoanAmount:          sanction.LoanAmount,
		TenureMonths:        sanction.TenureMonths,
		InterestRate:        sanction.InterestRate,
		EMI:                 sanction.EMI,
		TotalAmount:         sanction.TotalAmount,
		TotalInterest:       sanction.TotalInterest,
		ProcessingFee:       sanction.ProcessingFee,
		ProcessingFeePct:    sanction.ProcessingFeePct,
		DisbursementAccount: fmt.Sprintf("%s - %s (%s)", sanction.AccountHolderName, masked, sanction.IFSCCode),
		BankDetails: BankDetails{
			AccountNumber:     masked,
			IFSCCode:          sanction.IFSCCode,
			AccountHolderName: sanction.AccountHolderName,
			BankName:          sanction.BankName,
		},
		ValidityDays:       sanction.ValidityDays,
		TermsAndConditions: sanctionTerms,
		Summary:            summary,
	}
}

// MaskAccountNumber hides all but the last 4 digits.
func MaskAccountNumber(account string) string {
	if len(account) > 4 {
		return "****" + account[len(account)-4:]
	}
	return "****"
}
