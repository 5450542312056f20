package services

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/vittam-ai/vittam-backend/internal/filestore"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// MaxUploadSize is the largest accepted document upload, 1 MiB.
const MaxUploadSize = 1 << 20

// DocumentStatus summarizes the verification state of a session's
// uploads.
type DocumentStatus struct {
	Total            int      `json:"total"`
	Verified         int      `json:"verified"`
	Pending          int      `json:"pending"`
	Rejected         int      `json:"rejected"`
	AllVerified      bool     `json:"all_verified"`
	MissingMandatory []string `json:"missing_mandatory,omitempty"`
}

// DocumentService handles document intake and bookkeeping. Bytes go to
// the file store, metadata and verification state to the record store.
type DocumentService struct {
	store storage.Store
	files filestore.Store
}

// NewDocumentService creates a new document service instance
func NewDocumentService(store storage.Store, files filestore.Store) *DocumentService {
	return &DocumentService{store: store, files: files}
}

// StoreDocument validates and saves one upload, overwriting any earlier
// upload of the same type for the session. A re-upload resets the
// verification state to pending.
func (s *DocumentService) StoreDocument(sessionID, docType, originalFilename string, content []byte) (*models.Document, error) {
	docInfo, ok := models.DocumentTypeByKey(docType)
	if !ok {
		return nil, fmt.Errorf("invalid document type %q, allowed types: %v", docType, models.DocumentTypeKeys())
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}
	if len(content) > MaxUploadSize {
		return nil, fmt.Errorf("file size %d exceeds the 1MB limit", len(content))
	}

	if _, err := s.store.GetSession(sessionID); err != nil {
		return nil, err
	}

	// Files are stored as <doc type><original extension> so a re-upload
	// replaces the previous file
	fileName := docType + filepath.Ext(originalFilename)
	path, err := s.files.Save(sessionID, fileName, content)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.UpsertDocument(&models.Document{
		SessionID:        sessionID,
		DocType:          docType,
		DocName:          docInfo.Name,
		OriginalFilename: originalFilename,
		FilePath:         path,
		FileSize:         int64(len(content)),
		Remote:           s.files.Remote(),
		UploadedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[SERVICE] StoreDocument - saved %s for session %s (%d bytes)", docType, sessionID, len(content))
	return doc, nil
}

// List returns the session's documents in upload order.
func (s *DocumentService) List(sessionID string) ([]*models.Document, error) {
	return s.store.GetDocumentsBySession(sessionID)
}

// Status counts the session's documents by verification state.
// AllVerified requires at least one document, none pending and none
// rejected; it deliberately fails on an empty set.
func (s *DocumentService) Status(sessionID string) (*DocumentStatus, error) {
	docs, err := s.store.GetDocumentsBySession(sessionID)
	if err != nil {
		return nil, err
	}

	status := &DocumentStatus{Total: len(docs)}
	uploaded := make(map[string]bool, len(docs))
	for _, doc := range docs {
		uploaded[doc.DocType] = true
		switch doc.VerificationStatus {
		case models.DocStatusVerified:
			status.Verified++
		case models.DocStatusRejected:
			status.Rejected++
		default:
			status.Pending++
		}
	}
	status.AllVerified = status.Total > 0 && status.Pending == 0 && status.Rejected == 0

	for _, dt := range models.AllowedDocumentTypes {
		if dt.Mandatory && !uploaded[dt.Key] {
			status.MissingMandatory = append(status.MissingMandatory, dt.Key)
		}
	}

	return status, nil
}
