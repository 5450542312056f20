package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/services"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// DocumentHandler handles document upload and verification requests
type DocumentHandler struct {
	sessions     *services.SessionService
	documents    *services.DocumentService
	verification *services.VerificationService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(sessions *services.SessionService, documents *services.DocumentService, verification *services.VerificationService) *DocumentHandler {
	return &DocumentHandler{
		sessions:     sessions,
		documents:    documents,
		verification: verification,
	}
}

// Upload accepts one document as a multipart form with session_id,
// doc_id and file fields.
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	sessionID := c.FormValue("session_id")
	docID := c.FormValue("doc_id")

	if sessionID == "" || docID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id and doc_id are required",
		})
	}

	if _, ok := models.DocumentTypeByKey(docID); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid doc_id: %s. Allowed types: %s", docID, strings.Join(models.DocumentTypeKeys(), ", ")),
		})
	}

	if _, err := h.sessions.Get(sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Session %s not found", sessionID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}
	if fileHeader.Size > services.MaxUploadSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File size exceeds 1MB limit. Current size: %d bytes", fileHeader.Size),
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	if len(content) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is empty",
		})
	}

	doc, err := h.documents.StoreDocument(sessionID, docID, fileHeader.Filename, content)
	if err != nil {
		log.Printf("[API] Document upload failed - Session: %s, Doc ID: %s, Error: %v", sessionID, docID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Printf("[API] Document uploaded - Session: %s, Doc ID: %s, Size: %d bytes", sessionID, docID, len(content))

	return c.JSON(fiber.Map{
		"success":     true,
		"doc_id":      docID,
		"document_id": strconv.FormatUint(uint64(doc.ID), 10),
		"message":     fmt.Sprintf("Document '%s' uploaded successfully", doc.DocName),
	})
}

// List returns all documents uploaded for a session
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	if _, err := h.sessions.Get(sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Session %s not found", sessionID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	docs, err := h.documents.List(sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch documents",
		})
	}

	formatted := make([]fiber.Map, 0, len(docs))
	for _, doc := range docs {
		entry := fiber.Map{
			"document_id":           strconv.FormatUint(uint64(doc.ID), 10),
			"doc_id":                doc.DocType,
			"doc_name":              doc.DocName,
			"original_filename":     doc.OriginalFilename,
			"file_path":             doc.FilePath,
			"file_size":             doc.FileSize,
			"uploaded_at":           doc.UploadedAt.UTC().Format(time.RFC3339),
			"verification_status":   doc.VerificationStatus,
			"verification_feedback": doc.VerificationFeedback,
		}
		if doc.VerifiedAt != nil {
			entry["verified_at"] = doc.VerifiedAt.UTC().Format(time.RFC3339)
		}
		formatted = append(formatted, entry)
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"documents":  formatted,
	})
}

// VerifySession runs vision verification over every document of a
// session that is not yet verified.
func (h *DocumentHandler) VerifySession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	if _, err := h.sessions.Get(sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Session %s not found", sessionID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	result, err := h.verification.VerifySession(c.Context(), sessionID)
	if err != nil {
		log.Printf("[API] Document verification failed - Session: %s, Error: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error verifying documents",
		})
	}

	log.Printf("[API] Document verification completed - Session: %s, All verified: %v", sessionID, result.AllVerified)

	return c.JSON(result)
}

// VerifyOne runs vision verification for a single document by ID
func (h *DocumentHandler) VerifyOne(c *fiber.Ctx) error {
	documentID, err := strconv.ParseUint(c.Params("document_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	result, err := h.verification.VerifyDocument(c.Context(), uint(documentID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		log.Printf("[API] Document verification failed - Document: %d, Error: %v", documentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error verifying document",
		})
	}

	log.Printf("[API] Document verification completed - Document: %d, Verified: %v", documentID, result.Verified)

	return c.JSON(fiber.Map{
		"success":         true,
		"document_id":     strconv.FormatUint(documentID, 10),
		"verified":        result.Verified,
		"is_correct_type": result.IsCorrectType,
		"feedback":        result.Feedback,
	})
}
