package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vittam-ai/vittam-backend/internal/filestore"
	"github.com/vittam-ai/vittam-backend/internal/llm"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

const (
	visionTimeout     = 30 * time.Second
	visionTemperature = 0.2
	visionMaxTokens   = 1000

	// pages rendered from a PDF; multi-page review only applies to
	// bank statements
	maxPDFPages = 3
)

// Rasterizer renders PDF pages into PNG images for the vision model.
type Rasterizer interface {
	Render(pdf []byte, maxPages int) ([][]byte, error)
}

// docExpectation describes what the vision model should look for when
// checking one document type.
type docExpectation struct {
	ExpectedTypes []string
	Description   string
	KeyFields     []string
}

var docExpectations = map[string]docExpectation{
	"identity_proof": {
		ExpectedTypes: []string{"Aadhaar Card", "Voter ID", "Passport", "Driving License"},
		Description:   "Identity proof document (Aadhaar, Voter ID, Passport, or Driving License)",
		KeyFields:     []string{"name", "date of birth", "photo", "document number"},
	},
	"address_proof": {
		ExpectedTypes: []string{"Aadhaar Card", "Voter ID", "Passport", "Driving License", "Utility Bill"},
		Description:   "Address proof document showing residential address",
		KeyFields:     []string{"address", "name", "document number"},
	},
	"bank_statement": {
		ExpectedTypes: []string{"Bank Statement"},
		Description:   "Bank statement showing transaction history for last 3 months",
		KeyFields:     []string{"account number", "bank name", "transactions", "balance", "date range"},
	},
	"salary_slip": {
		ExpectedTypes: []string{"Salary Slip", "Payslip"},
		Description:   "Salary slip showing monthly salary details",
		KeyFields:     []string{"employee name", "salary amount", "month", "employer name", "deductions"},
	},
	"employment_certificate": {
		ExpectedTypes: []string{"Employment Certificate", "Employment Letter", "Experience Certificate"},
		Description:   "Certificate confirming employment and tenure",
		KeyFields:     []string{"employee name", "employer name", "employment date", "designation"},
	},
}

var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// VerifyResult is the verdict for one document.
type VerifyResult struct {
	DocumentID    uint   `json:"document_id"`
	DocType       string `json:"doc_type"`
	DocName       string `json:"doc_name"`
	Verified      bool   `json:"verified"`
	IsCorrectType bool   `json:"is_correct_type"`
	Status        string `json:"status,omitempty"`
	Feedback      string `json:"feedback"`
}

// SessionVerifyResult aggregates verdicts across a session's uploads.
type SessionVerifyResult struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	SessionID      string         `json:"session_id"`
	AllVerified    bool           `json:"all_verified"`
	Results        []VerifyResult `json:"results"`
	TotalDocuments int            `json:"total_documents"`
	VerifiedCount  int            `json:"verified_count"`
	RejectedCount  int            `json:"rejected_count"`
}

// VerificationService classifies uploaded documents with a vision
// model. Verdicts are parsed fail-closed: anything the model returns
// that does not parse as the expected JSON rejects the document with
// feedback asking for a re-upload.
type VerificationService struct {
	store      storage.Store
	files      filestore.Store
	client     llm.Client
	model      string
	rasterizer Rasterizer // nil disables PDF support
}

// NewVerificationService creates a new verification service instance
func NewVerificationService(store storage.Store, files filestore.Store, client llm.Client, model string, rasterizer Rasterizer) *VerificationService {
	return &VerificationService{
		store:      store,
		files:      files,
		client:     client,
		model:      model,
		rasterizer: rasterizer,
	}
}

// VerifyDocument runs the vision check for one stored document and
// persists the verdict on its record.
func (s *VerificationService) VerifyDocument(ctx context.Context, documentID uint) (*VerifyResult, error) {
	doc, err := s.store.GetDocumentByID(documentID)
	if err != nil {
		return nil, err
	}

	verified, correctType, feedback := s.classify(ctx, doc)

	doc.VerificationFeedback = feedback
	if verified {
		doc.VerificationStatus = models.DocStatusVerified
		now := time.Now().UTC()
		doc.VerifiedAt = &now
	} else {
		doc.VerificationStatus = models.DocStatusRejected
		doc.VerifiedAt = nil
	}
	if err := s.store.UpdateDocument(doc); err != nil {
		return nil, err
	}

	log.Printf("[VERIFY] %s for session %s: verified=%v", doc.DocType, doc.SessionID, verified)
	return &VerifyResult{
		DocumentID:    doc.ID,
		DocType:       doc.DocType,
		DocName:       doc.DocName,
		Verified:      verified,
		IsCorrectType: correctType,
		Feedback:      feedback,
	}, nil
}

// VerifySession verifies every document of a session, skipping those
// already verified. AllVerified only holds when each document ends up
// verified.
func (s *VerificationService) VerifySession(ctx context.Context, sessionID string) (*SessionVerifyResult, error) {
	docs, err := s.store.GetDocumentsBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &SessionVerifyResult{
			Success:   false,
			Message:   "No documents found for this session",
			SessionID: sessionID,
			Results:   []VerifyResult{},
		}, nil
	}

	result := &SessionVerifyResult{
		Success:        true,
		SessionID:      sessionID,
		AllVerified:    true,
		TotalDocuments: len(docs),
	}
	for _, doc := range docs {
		if doc.VerificationStatus == models.DocStatusVerified {
			result.Results = append(result.Results, VerifyResult{
				DocumentID: doc.ID,
				DocType:    doc.DocType,
				DocName:    doc.DocName,
				Verified:   true,
				Status:     "already_verified",
				Feedback:   "Document was already verified",
			})
			result.VerifiedCount++
			continue
		}

		verdict, err := s.VerifyDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		result.Results = append(result.Results, *verdict)
		if verdict.Verified {
			result.VerifiedCount++
		} else {
			result.RejectedCount++
			result.AllVerified = false
		}
	}

	return result, nil
}

// classify prepares the prompt and image blocks and interprets the
// model's verdict. It never returns an error: every failure mode maps
// to a rejection with actionable feedback.
func (s *VerificationService) classify(ctx context.Context, doc *models.Document) (verified, correctType bool, feedback string) {
	ext := strings.ToLower(filepath.Ext(doc.FilePath))
	mediaType, isImage := imageMediaTypes[ext]
	isPDF := ext == ".pdf"
	if !isImage && !isPDF {
		return false, false, "Invalid file format. Please upload an image (JPG, PNG) or PDF file."
	}

	content, err := s.files.Load(doc.FilePath)
	if err != nil {
		log.Printf("[VERIFY] failed to load %s: %v", doc.FilePath, err)
		return false, false, "Document file could not be read. Please try uploading the document again."
	}

	prompt := verificationPrompt(doc.DocType, doc.DocName)
	blocks := []llm.Block{}

	if isImage {
		blocks = append(blocks, llm.Block{Type: "image", MediaType: mediaType, Data: content})
	} else {
		if s.rasterizer == nil {
			return false, false, "PDF uploads are not supported right now. Please upload the document as an image (JPG/PNG)."
		}
		pages, err := s.rasterizer.Render(content, maxPDFPages)
		if err != nil {
			return false, false, fmt.Sprintf("Error processing PDF: %v. Please ensure the PDF is not password-protected and is a valid PDF file. Alternatively, upload as an image (JPG/PNG).", err)
		}
		if len(pages) == 0 {
			return false, false, "Could not extract images from PDF. Please ensure the PDF is not corrupted and try again, or upload as an image (JPG/PNG)."
		}

		// One page is enough for single-page documents, bank statements
		// get up to three
		pagesToVerify := 1
		if doc.DocType == "bank_statement" {
			pagesToVerify = len(pages)
			if pagesToVerify > maxPDFPages {
				pagesToVerify = maxPDFPages
			}
			if len(pages) > 1 {
				prompt += fmt.Sprintf("\n\nNote: This is a multi-page bank statement (%d pages). Please verify the pages shown and ensure they contain transaction history for the last 3 months.", len(pages))
			}
		}
		for i := 0; i < pagesToVerify; i++ {
			blocks = append(blocks, llm.Block{Type: "image", MediaType: "image/png", Data: pages[i]})
		}
	}

	blocks = append(blocks, llm.Block{Type: "text", Text: prompt})

	callCtx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	temp := visionTemperature
	resp, err := s.client.CreateMessage(callCtx, llm.MessageRequest{
		Model:       s.model,
		MaxTokens:   visionMaxTokens,
		Messages:    []llm.Message{{Role: "user", Blocks: blocks}},
		Temperature: &temp,
	})
	if err != nil {
		log.Printf("[VERIFY] vision model error for %s: %v", doc.DocType, err)
		return false, false, "Error during verification. Please try uploading the document again."
	}

	v := parseVerdict(resp.Text())
	if v == nil {
		log.Printf("[VERIFY] failed to parse verdict for %s", doc.DocType)
		return false, false, "Unable to parse verification response. Please try uploading the document again."
	}

	return strings.EqualFold(v.OverallVerification, "verified"), v.IsCorrectType, v.Feedback
}

func verificationPrompt(docType, docName string) string {
	exp := docExpectations[docType]
	return fmt.Sprintf(`You are a document verification expert. Analyze this document and verify:

IMPORTANT - TESTING MODE (LENIENT VERIFICATION):
- This is for testing purposes - accept documents even if they contain words like "DUMMY", "SPECIMEN", "SAMPLE", "TEST"
- Focus ONLY on whether the required information is present, not whether it's a real/authentic document
- If the document shows the required information clearly, accept it regardless of test/specimen labels

1. Document Type Check:
   - Expected document type: %s
   - Expected document types: %s
   - Document description: %s
   - Is this document the correct type? (e.g., if asked for Identity Proof, is it Aadhaar/Voter ID/Passport/Driving License?)
   - IGNORE words like "DUMMY", "SPECIMEN", "SAMPLE" - only check if it's the right document type

2. Document Quality Check:
   - Is the document clear and readable?
   - Is it complete (not cropped or cut off)?
   - Can you see the information needed?

3. Key Information Check:
   - Does the document contain the expected key fields: %s?
   - Is the information clearly visible and readable?
   - If the required fields are present and readable, ACCEPT the document even if it says "DUMMY" or "SPECIMEN"

VERIFICATION RULES (LENIENT):
- ACCEPT if: Document is correct type AND required information is present AND readable (even if marked as DUMMY/SPECIMEN)
- REJECT only if: Document is wrong type OR required information is missing OR document is unreadable/blurry
- Do NOT reject just because document says "DUMMY", "SPECIMEN", "SAMPLE", or "TEST"
- Focus on information completeness, not document authenticity

REQUIRED JSON FORMAT (respond with ONLY this JSON, nothing else):
{
    "is_correct_type": true,
    "is_clear_and_readable": true,
    "is_complete": true,
    "contains_expected_fields": true,
    "overall_verification": "verified",
    "feedback": "Brief feedback about the document",
    "document_type_detected": "The actual type of document detected"
}

Remember: Respond with ONLY the JSON object, no other text.`,
		docName,
		strings.Join(exp.ExpectedTypes, ", "),
		exp.Description,
		strings.Join(exp.KeyFields, ", "))
}

type verdict struct {
	IsCorrectType          bool   `json:"is_correct_type"`
	IsClearAndReadable     bool   `json:"is_clear_and_readable"`
	IsComplete             bool   `json:"is_complete"`
	ContainsExpectedFields bool   `json:"contains_expected_fields"`
	OverallVerification    string `json:"overall_verification"`
	Feedback               string `json:"feedback"`
	DocumentTypeDetected   string `json:"document_type_detected"`
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// parseVerdict extracts the verdict JSON from the model output, peeling
// markdown fences when present. Returns nil when no verdict can be
// recovered.
func parseVerdict(text string) *verdict {
	var v verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err == nil {
		return &v
	}

	cleaned := text
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	} else if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[idx+len("```"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	}
	cleaned = strings.TrimSpace(cleaned)
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return &v
	}

	if match := jsonObjectRe.FindString(cleaned); match != "" {
		if err := json.Unmarshal([]byte(match), &v); err == nil {
			return &v
		}
	}

	return nil
}
