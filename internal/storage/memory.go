package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/utils"
)

// MemoryStore holds all data in memory. Used for tests and local
// development with USE_MEMORY_STORE=true.
type MemoryStore struct {
	customers map[string]*models.Customer // keyed by phone
	kycs      map[string]*models.KYC      // keyed by PAN
	sessions  map[string]*models.Session  // keyed by session ID
	convs     []*models.Conversation
	documents map[string]*models.Document // keyed by sessionID+"/"+docType
	sanctions map[string]*models.Sanction // keyed by sanction ID
	offers    []*models.OfferTemplate
	otps      []*models.OTP

	mu      sync.RWMutex
	counter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*models.Customer),
		kycs:      make(map[string]*models.KYC),
		sessions:  make(map[string]*models.Session),
		documents: make(map[string]*models.Document),
		sanctions: make(map[string]*models.Sanction),
	}
}

func (m *MemoryStore) nextID() uint {
	m.counter++
	return m.counter
}

// Customer / KYC operations

func (m *MemoryStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customer, exists := m.customers[phone]
	if !exists {
		return nil, fmt.Errorf("customer: %w", ErrNotFound)
	}
	return customer, nil
}

func (m *MemoryStore) GetKYCByPAN(pan string) (*models.KYC, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kyc, exists := m.kycs[strings.ToUpper(pan)]
	if !exists {
		return nil, fmt.Errorf("kyc: %w", ErrNotFound)
	}
	return kyc, nil
}

func (m *MemoryStore) GetKYCByPhone(phone string) (*models.KYC, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, kyc := range m.kycs {
		if kyc.Phone == phone {
			return kyc, nil
		}
	}
	return nil, fmt.Errorf("kyc: %w", ErrNotFound)
}

func (m *MemoryStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer.ID = m.nextID()
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = time.Now()
	m.customers[customer.Phone] = customer
	return customer, nil
}

func (m *MemoryStore) CreateKYC(kyc *models.KYC) (*models.KYC, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kyc.ID = m.nextID()
	kyc.PAN = strings.ToUpper(kyc.PAN)
	m.kycs[kyc.PAN] = kyc
	return kyc, nil
}

// Session operations

func (m *MemoryStore) CreateSession(session *models.Session) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.SessionID]; exists {
		return nil, fmt.Errorf("session %s already exists", session.SessionID)
	}
	session.ID = m.nextID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()
	if session.Stage == "" {
		session.Stage = models.StageInitial
	}
	m.sessions[session.SessionID] = session
	return session, nil
}

func (m *MemoryStore) GetSession(sessionID string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return session, nil
}

func (m *MemoryStore) UpdateSession(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.SessionID]; !exists {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	session.UpdatedAt = time.Now()
	m.sessions[session.SessionID] = session
	return nil
}

func (m *MemoryStore) GetOrphanSessionIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	withMessages := make(map[string]bool)
	for _, conv := range m.convs {
		withMessages[conv.SessionID] = true
	}

	var orphans []string
	for id := range m.sessions {
		if !withMessages[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

func (m *MemoryStore) DeleteSessions(sessionIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range sessionIDs {
		if _, exists := m.sessions[id]; exists {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Conversation operations

func (m *MemoryStore) CreateConversation(conv *models.Conversation) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv.ID = m.nextID()
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	m.convs = append(m.convs, conv)
	return conv, nil
}

func (m *MemoryStore) GetConversations(sessionID string, limit int) ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Conversation
	for _, conv := range m.convs {
		if conv.SessionID == sessionID {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Document operations

func docKey(sessionID, docType string) string {
	return sessionID + "/" + docType
}

func (m *MemoryStore) GetDocument(sessionID, docType string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.documents[docKey(sessionID, docType)]
	if !exists {
		return nil, fmt.Errorf("document: %w", ErrNotFound)
	}
	return doc, nil
}

func (m *MemoryStore) GetDocumentByID(id uint) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.documents {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("document: %w", ErrNotFound)
}

func (m *MemoryStore) GetDocumentsBySession(sessionID string) ([]*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*models.Document
	for _, doc := range m.documents {
		if doc.SessionID == sessionID {
			docs = append(docs, doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs, nil
}

func (m *MemoryStore) UpsertDocument(doc *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(doc.SessionID, doc.DocType)
	existing, exists := m.documents[key]
	if !exists {
		doc.ID = m.nextID()
		doc.CreatedAt = time.Now()
		doc.UpdatedAt = doc.CreatedAt
		if doc.VerificationStatus == "" {
			doc.VerificationStatus = models.DocStatusPending
		}
		m.documents[key] = doc
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
	existing.UpdatedAt = time.Now()
	return existing, nil
}

func (m *MemoryStore) UpdateDocument(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(doc.SessionID, doc.DocType)
	if _, exists := m.documents[key]; !exists {
		return fmt.Errorf("document: %w", ErrNotFound)
	}
	doc.UpdatedAt = time.Now()
	m.documents[key] = doc
	return nil
}

// Sanction operations

func (m *MemoryStore) CreateSanction(sanction *models.Sanction) (*models.Sanction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sanction.ID = m.nextID()
	if sanction.SanctionID == "" {
		sanction.SanctionID = utils.GenerateSecureID("SAN")
	}
	sanction.CreatedAt = time.Now()
	sanction.UpdatedAt = sanction.CreatedAt
	m.sanctions[sanction.SanctionID] = sanction
	return sanction, nil
}

func (m *MemoryStore) GetSanction(sanctionID string) (*models.Sanction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sanction, exists := m.sanctions[sanctionID]
	if !exists {
		return nil, fmt.Errorf("sanction: %w", ErrNotFound)
	}
	return sanction, nil
}

func (m *MemoryStore) GetActiveSanctionBySession(sessionID string) (*models.Sanction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.Sanction
	for _, sanction := range m.sanctions {
		if sanction.SessionID != sessionID || sanction.Status != models.SanctionStatusActive {
			continue
		}
		if latest == nil || sanction.CreatedAt.After(latest.CreatedAt) {
			latest = sanction
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("sanction: %w", ErrNotFound)
	}
	return latest, nil
}

func (m *MemoryStore) UpdateSanction(sanction *models.Sanction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sanctions[sanction.SanctionID]; !exists {
		return fmt.Errorf("sanction: %w", ErrNotFound)
	}
	sanction.UpdatedAt = time.Now()
	m.sanctions[sanction.SanctionID] = sanction
	return nil
}

// Offer template operations

func (m *MemoryStore) FindOfferTemplates(creditScore int, amount float64, filterAmount bool) ([]*models.OfferTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*models.OfferTemplate
	for _, tpl := range m.offers {
		if !tpl.Active {
			continue
		}
		if creditScore < tpl.MinCreditScore || creditScore > tpl.MaxCreditScore {
			continue
		}
		if filterAmount && (amount < tpl.MinAmount || amount > tpl.MaxAmount) {
			continue
		}
		matches = append(matches, tpl)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].BaseRate < matches[j].BaseRate
	})
	return matches, nil
}

func (m *MemoryStore) CreateOfferTemplate(tpl *models.OfferTemplate) (*models.OfferTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tpl.ID = m.nextID()
	m.offers = append(m.offers, tpl)
	return tpl, nil
}

// OTP operations

func (m *MemoryStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	otp.ID = m.nextID()
	otp.CreatedAt = time.Now()
	m.otps = append(m.otps, otp)
	return otp, nil
}

func (m *MemoryStore) GetActiveOTP(phone, purpose string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.otps) - 1; i >= 0; i-- {
		otp := m.otps[i]
		if otp.Phone == phone && otp.Purpose == purpose && !otp.IsUsed && time.Now().Before(otp.ExpiresAt) {
			return otp, nil
		}
	}
	return nil, fmt.Errorf("otp: %w", ErrNotFound)
}

func (m *MemoryStore) UpdateOTP(otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.otps {
		if existing.ID == otp.ID {
			m.otps[i] = otp
			return nil
		}
	}
	return fmt.Errorf("otp: %w", ErrNotFound)
}

func (m *MemoryStore) DeleteExpiredOTPs() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []*models.OTP
	for _, otp := range m.otps {
		if time.Now().Before(otp.ExpiresAt) {
			kept = append(kept, otp)
		}
	}
	m.otps = kept
	return nil
}
