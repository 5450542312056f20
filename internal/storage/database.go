package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vittam-ai/vittam-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// Customer / KYC operations

func (d *DatabaseStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Preload("Loans").Where("phone = ?", phone).First(&customer).Error
	if err != nil {
		return nil, notFound(err, "customer")
	}
	return &customer, nil
}

func (d *DatabaseStore) GetKYCByPAN(pan string) (*models.KYC, error) {
	var kyc models.KYC
	err := d.db.Where("pan = ?", pan).First(&kyc).Error
	if err != nil {
		return nil, notFound(err, "kyc")
	}
	return &kyc, nil
}

func (d *DatabaseStore) GetKYCByPhone(phone string) (*models.KYC, error) {
	var kyc models.KYC
	err := d.db.Where("phone = ?", phone).First(&kyc).Error
	if err != nil {
		return nil, notFound(err, "kyc")
	}
	return &kyc, nil
}

func (d *DatabaseStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	if err := d.db.Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (d *DatabaseStore) CreateKYC(kyc *models.KYC) (*models.KYC, error) {
	if err := d.db.Create(kyc).Error; err != nil {
		return nil, err
	}
	return kyc, nil
}

// Session operations

func (d *DatabaseStore) CreateSession(session *models.Session) (*models.Session, error) {
	if err := d.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (d *DatabaseStore) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	err := d.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, notFound(err, "session")
	}
	return &session, nil
}

func (d *DatabaseStore) UpdateSession(session *models.Session) error {
	return d.db.Save(session).Error
}

// GetOrphanSessionIDs lists sessions that have no conversation messages.
func (d *DatabaseStore) GetOrphanSessionIDs() ([]string, error) {
	var ids []string
	err := d.db.Model(&models.Session{}).
		Where("session_id NOT IN (?)",
			d.db.Model(&models.Conversation{}).Distinct("session_id")).
		Pluck("session_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *DatabaseStore) DeleteSessions(sessionIDs []string) (int64, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	result := d.db.Where("session_id IN ?", sessionIDs).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// Conversation operations

func (d *DatabaseStore) CreateConversation(conv *models.Conversation) (*models.Conversation, error) {
	if err := d.db.Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (d *DatabaseStore) GetConversations(sessionID string, limit int) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	query := d.db.Where("session_id = ?", sessionID).Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&conversations).Error; err != nil {
		return nil, err
	}
	return conversations, nil
}

// Document operations

func (d *DatabaseStore) GetDocument(sessionID, docType string) (*models.Document, error) {
	var doc models.Document
	err := d.db.Where("session_id = ? AND doc_type = ?", sessionID, docType).First(&doc).Error
	if err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}

func (d *DatabaseStore) GetDocumentByID(id uint) (*models.Document, error) {
	var doc models.Document
	err := d.db.First(&doc, id).Error
	if err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}

func (d *DatabaseStore) GetDocumentsBySession(sessionID string) ([]*models.Document, error) {
	var docs []*models.Document
	err := d.db.Where("session_id = ?", sessionID).Order("uploaded_at asc").Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpsertDocument creates or overwrites the record for (session, doc type).
// A re-upload keeps the row but replaces file metadata and resets the
// verification fields to pending.
func (d *DatabaseStore) UpsertDocument(doc *models.Document) (*models.Document, error) {
	existing, err := d.GetDocument(doc.SessionID, doc.DocType)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err := d.db.Create(doc).Error; err != nil {
			return nil, err
		}
		return doc, nil
	}

	existing.DocName = doc.DocName
	existing.OriginalFilename = doc.OriginalFilename
	existing.FilePath = doc.FilePath
	existing.FileSize = doc.FileSize
	existing.Remote = doc.Remote
	existing.UploadedAt = doc.UploadedAt
	existing.VerificationStatus = models.DocStatusPending
	existing.VerificationFeedback = ""
	existing.VerifiedAt = nil
	if err := d.db.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func (d *DatabaseStore) UpdateDocument(doc *models.Document) error {
	return d.db.Save(doc).Error
}

// Sanction operations

func (d *DatabaseStore) CreateSanction(sanction *models.Sanction) (*models.Sanction, error) {
	if err := d.db.Create(sanction).Error; err != nil {
		return nil, err
	}
	return sanction, nil
}

func (d *DatabaseStore) GetSanction(sanctionID string) (*models.Sanction, error) {
	var sanction models.Sanction
	err := d.db.Where("sanction_id = ?", sanctionID).First(&sanction).Error
	if err != nil {
		return nil, notFound(err, "sanction")
	}
	return &sanction, nil
}

func (d *DatabaseStore) GetActiveSanctionBySession(sessionID string) (*models.Sanction, error) {
	var sanction models.Sanction
	err := d.db.Where("session_id = ? AND status = ?", sessionID, models.SanctionStatusActive).
		Order("created_at desc").First(&sanction).Error
	if err != nil {
		return nil, notFound(err, "sanction")
	}
	return &sanction, nil
}

func (d *DatabaseStore) UpdateSanction(sanction *models.Sanction) error {
	return d.db.Save(sanction).Error
}

// Offer template operations

func (d *DatabaseStore) FindOfferTemplates(creditScore int, amount float64, filterAmount bool) ([]*models.OfferTemplate, error) {
	var offers []*models.OfferTemplate
	query := d.db.Where("active = ?", true).
		Where("min_credit_score <= ? AND max_credit_score >= ?", creditScore, creditScore)
	if filterAmount {
		query = query.Where("min_amount <= ? AND max_amount >= ?", amount, amount)
	}
	if err := query.Order("base_rate asc").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (d *DatabaseStore) CreateOfferTemplate(tpl *models.OfferTemplate) (*models.OfferTemplate, error) {
	if err := d.db.Create(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// OTP operations

func (d *DatabaseStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	if err := d.db.Create(otp).Error; err != nil {
		return nil, err
	}
	return otp, nil
}

func (d *DatabaseStore) GetActiveOTP(phone, purpose string) (*models.OTP, error) {
	var otp models.OTP
	err := d.db.Where("phone = ? AND purpose = ? AND is_used = ? AND expires_at > ?",
		phone, purpose, false, time.Now()).
		Order("created_at desc").First(&otp).Error
	if err != nil {
		return nil, notFound(err, "otp")
	}
	return &otp, nil
}

func (d *DatabaseStore) UpdateOTP(otp *models.OTP) error {
	return d.db.Save(otp).Error
}

func (d *DatabaseStore) DeleteExpiredOTPs() error {
	return d.db.Where("expires_at < ?", time.Now()).Delete(&models.OTP{}).Error
}
