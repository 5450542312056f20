package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// LoanInfo summarizes one running loan on the customer's record.
type LoanInfo struct {
	Type        string  `json:"type"`
	EMI         float64 `json:"emi"`
	Outstanding float64 `json:"outstanding"`
}

// CustomerData is the unified customer snapshot merged from the CRM
// record and the KYC record. It is what the assistant reasons over and
// what gets pinned onto a session after identity verification.
type CustomerData struct {
	CustomerID       string     `json:"customer_id"`
	Name             string     `json:"name"`
	Age              *int       `json:"age,omitempty"`
	City             string     `json:"city,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Email            string     `json:"email,omitempty"`
	DOB              string     `json:"dob,omitempty"`
	PAN              string     `json:"pan,omitempty"`
	CreditScore      int        `json:"credit_score,omitempty"`
	Address          string     `json:"address,omitempty"`
	CurrentLoans     []LoanInfo `json:"current_loans"`
	PreApprovedLimit float64    `json:"pre_approved_limit"`
	Salary           *float64   `json:"salary,omitempty"`
	ExistingCustomer bool       `json:"existing_customer"`
}

// NormalizePhone strips spaces, dashes and the +91/91 country prefix,
// leaving the 10-digit national number.
func NormalizePhone(phone string) string {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(clean, "+91") {
		clean = clean[3:]
	} else if strings.HasPrefix(clean, "91") && len(clean) > 10 {
		clean = clean[2:]
	}
	return clean
}

// FormatPhoneForDisplay renders a phone number with the +91 prefix.
func FormatPhoneForDisplay(phone string) string {
	return "+91" + NormalizePhone(phone)
}

// CustomerService looks up customers across the CRM and KYC records.
type CustomerService struct {
	store storage.Store
}

// NewCustomerService creates a new customer service instance
func NewCustomerService(store storage.Store) *CustomerService {
	return &CustomerService{store: store}
}

// GetByPhone returns the merged customer snapshot for a phone number.
func (s *CustomerService) GetByPhone(phone string) (*CustomerData, error) {
	normalized := NormalizePhone(phone)
	log.Printf("[SERVICE] GetByPhone called - phone: %s", normalized)

	customer, err := s.store.GetCustomerByPhone(normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("[SERVICE] GetByPhone - customer not found for phone: %s", normalized)
		}
		return nil, err
	}

	// KYC is optional, the snapshot is still useful without it
	kyc, err := s.store.GetKYCByPhone(normalized)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	data := buildCustomerData(customer, kyc)
	log.Printf("[SERVICE] GetByPhone - customer found: %s", data.CustomerID)
	return data, nil
}

// GetByPAN returns the customer snapshot for a PAN. When the KYC record
// has no matching CRM record the snapshot is built from KYC alone.
func (s *CustomerService) GetByPAN(pan string) (*CustomerData, error) {
	panUpper := strings.ToUpper(strings.TrimSpace(pan))
	log.Printf("[SERVICE] GetByPAN called - PAN: %s", panUpper)

	kyc, err := s.store.GetKYCByPAN(panUpper)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("[SERVICE] GetByPAN - customer not found for PAN: %s", panUpper)
		}
		return nil, err
	}

	var customer *models.Customer
	if kyc.Phone != "" {
		customer, err = s.store.GetCustomerByPhone(NormalizePhone(kyc.Phone))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	var data *CustomerData
	if customer != nil {
		data = buildCustomerData(customer, kyc)
	} else {
		data = &CustomerData{
			CustomerID:       NormalizePhone(kyc.Phone),
			Name:             kyc.Name,
			PAN:              kyc.PAN,
			CreditScore:      kyc.CreditScore,
			Address:          kyc.Address,
			CurrentLoans:     []LoanInfo{},
			ExistingCustomer: false,
		}
		if kyc.Phone != "" {
			data.Phone = FormatPhoneForDisplay(kyc.Phone)
		}
		if kyc.DOB != nil {
			data.DOB = kyc.DOB.Format("2006-01-02")
			age := ageFrom(*kyc.DOB)
			data.Age = &age
		}
	}

	log.Printf("[SERVICE] GetByPAN - customer found: %s", data.CustomerID)
	return data, nil
}

// GetByID resolves a customer ID, which is the normalized phone number.
func (s *CustomerService) GetByID(customerID string) (*CustomerData, error) {
	return s.GetByPhone(customerID)
}

func buildCustomerData(customer *models.Customer, kyc *models.KYC) *CustomerData {
	data := &CustomerData{
		CustomerID:       NormalizePhone(customer.Phone),
		Name:             customer.Name,
		City:             customer.City,
		Email:            customer.Email,
		CurrentLoans:     make([]LoanInfo, 0, len(customer.Loans)),
		PreApprovedLimit: customer.PreApprovedLimit,
		Salary:           customer.Salary,
		ExistingCustomer: true,
	}
	if customer.Phone != "" {
		data.Phone = FormatPhoneForDisplay(customer.Phone)
	}
	if customer.DOB != nil {
		data.DOB = customer.DOB.Format("2006-01-02")
		age := ageFrom(*customer.DOB)
		data.Age = &age
	}
	for _, loan := range customer.Loans {
		data.CurrentLoans = append(data.CurrentLoans, LoanInfo{
			Type:        loan.Type,
			EMI:         loan.EMI,
			Outstanding: loan.Outstanding,
		})
	}

	if kyc != nil {
		data.PAN = kyc.PAN
		data.CreditScore = kyc.CreditScore
		data.Address = kyc.Address
		if data.DOB == "" && kyc.DOB != nil {
			data.DOB = kyc.DOB.Format("2006-01-02")
			age := ageFrom(*kyc.DOB)
			data.Age = &age
		}
	}

	return data
}

func ageFrom(dob time.Time) int {
	return int(time.Since(dob).Hours() / 24 / 365)
}

// Summary renders a short single-line description used in logs.
func (c *CustomerData) Summary() string {
	return fmt.Sprintf("%s (%s, score %d, limit ₹%.0f)", c.Name, c.CustomerID, c.CreditScore, c.PreApprovedLimit)
}
