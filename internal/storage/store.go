package storage

import (
	"errors"

	"github.com/vittam-ai/vittam-backend/internal/models"
)

// ErrNotFound is wrapped by every store method that fails to find a
// record. Callers branch on it with errors.Is rather than treating a
// missing record as a transient fault.
var ErrNotFound = errors.New("record not found")

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Customer / KYC reference data (seeded by onboarding, read-only here)
	GetCustomerByPhone(phone string) (*models.Customer, error)
	GetKYCByPAN(pan string) (*models.KYC, error)
	GetKYCByPhone(phone string) (*models.KYC, error)
	CreateCustomer(customer *models.Customer) (*models.Customer, error)
	CreateKYC(kyc *models.KYC) (*models.KYC, error)

	// Session operations
	CreateSession(session *models.Session) (*models.Session, error)
	GetSession(sessionID string) (*models.Session, error)
	UpdateSession(session *models.Session) error
	GetOrphanSessionIDs() ([]string, error)
	DeleteSessions(sessionIDs []string) (int64, error)

	// Conversation operations
	CreateConversation(conv *models.Conversation) (*models.Conversation, error)
	GetConversations(sessionID string, limit int) ([]*models.Conversation, error)

	// Document operations
	GetDocument(sessionID, docType string) (*models.Document, error)
	GetDocumentByID(id uint) (*models.Document, error)
	GetDocumentsBySession(sessionID string) ([]*models.Document, error)
	UpsertDocument(doc *models.Document) (*models.Document, error)
	UpdateDocument(doc *models.Document) error

	// Sanction operations
	CreateSanction(sanction *models.Sanction) (*models.Sanction, error)
	GetSanction(sanctionID string) (*models.Sanction, error)
	GetActiveSanctionBySession(sessionID string) (*models.Sanction, error)
	UpdateSanction(sanction *models.Sanction) error

	// Offer template operations
	FindOfferTemplates(creditScore int, amount float64, filterAmount bool) ([]*models.OfferTemplate, error)
	CreateOfferTemplate(tpl *models.OfferTemplate) (*models.OfferTemplate, error)

	// OTP operations
	CreateOTP(otp *models.OTP) (*models.OTP, error)
	GetActiveOTP(phone, purpose string) (*models.OTP, error)
	UpdateOTP(otp *models.OTP) error
	DeleteExpiredOTPs() error
}
