package models

import (
	"time"

	"gorm.io/gorm"
)

// Verification statuses for an uploaded document.
const (
	DocStatusPending  = "pending"
	DocStatusVerified = "verified"
	DocStatusRejected = "rejected"
)

// Document is one uploaded file for a session. Exactly one record exists
// per (session, doc type): a re-upload overwrites the earlier record and
// resets its verification fields.
type Document struct {
	gorm.Model
	SessionID            string     `json:"session_id" gorm:"index:idx_session_doc,unique"`
	DocType              string     `json:"doc_id" gorm:"index:idx_session_doc,unique"`
	DocName              string     `json:"doc_name"`
	OriginalFilename     string     `json:"original_filename"`
	FilePath             string     `json:"file_path"`
	FileSize             int64      `json:"file_size"`
	Remote               bool       `json:"remote"`
	UploadedAt           time.Time  `json:"uploaded_at"`
	VerificationStatus   string     `json:"verification_status" gorm:"default:pending"`
	VerificationFeedback string     `json:"verification_feedback"`
	VerifiedAt           *time.Time `json:"verified_at"`
}

// DocumentType describes one of the five allowed document types.
type DocumentType struct {
	Key         string
	Name        string
	Description string
	Mandatory   bool // always required vs. conditional-approval only
}

// AllowedDocumentTypes is the closed set of document types the assistant
// may request or accept. No capability may extend it.
var AllowedDocumentTypes = []DocumentType{
	{
		Key:         "identity_proof",
		Name:        "Identity Proof",
		Description: "Aadhaar Card / Voter ID / Passport / Driving License",
		Mandatory:   true,
	},
	{
		Key:         "address_proof",
		Name:        "Address Proof",
		Description: "Aadhaar Card / Voter ID / Passport / Driving License",
		Mandatory:   true,
	},
	{
		Key:         "bank_statement",
		Name:        "Bank Statement",
		Description: "Primary bank statement (salary account) for last 3 months",
		Mandatory:   true,
	},
	{
		Key:         "salary_slip",
		Name:        "Salary Slips",
		Description: "Salary slips for last 2 months",
		Mandatory:   false,
	},
	{
		Key:         "employment_certificate",
		Name:        "Employment Certificate",
		Description: "Certificate confirming at least 1 year of continuous employment",
		Mandatory:   false,
	},
}

// DocumentTypeByKey looks up an allowed document type by its key.
func DocumentTypeByKey(key string) (DocumentType, bool) {
	for _, dt := range AllowedDocumentTypes {
		if dt.Key == key {
			return dt, true
		}
	}
	return DocumentType{}, false
}

// DocumentTypeKeys returns the five allowed keys in declaration order.
func DocumentTypeKeys() []string {
	keys := make([]string, len(AllowedDocumentTypes))
	for i, dt := range AllowedDocumentTypes {
		keys[i] = dt.Key
	}
	return keys
}
