package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/vittam-ai/vittam-backend/internal/agent"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/services"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

const welcomeMessage = "Namaste! I'm Vittam (विट्टम), your personal loan assistant. How can I help you today?"

// InputSpec tells the client which document upload widget to show.
type InputSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DocID       string `json:"doc_id"`
}

// ChatHandler handles the conversation endpoints
type ChatHandler struct {
	sessions *services.SessionService
	router   *agent.Router
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions *services.SessionService, router *agent.Router) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		router:   router,
	}
}

// CreateSession starts a new chat session
func (h *ChatHandler) CreateSession(c *fiber.Ctx) error {
	session, err := h.sessions.Create()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	log.Printf("[API] New session created: %s", session.SessionID)

	return c.JSON(fiber.Map{
		"session_id": session.SessionID,
		"message":    welcomeMessage,
	})
}

// Chat handles one conversational turn. A missing or unknown session_id
// starts a fresh session so clients can keep chatting on self-chosen IDs.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	var session *models.Session
	var err error
	if req.SessionID == "" {
		session, err = h.sessions.Create()
	} else {
		session, err = h.sessions.GetOrCreate(req.SessionID)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	log.Printf("[API] Chat request - Session: %s, Message length: %d", session.SessionID, len(req.Message))

	reply, err := h.router.Chat(c.Context(), session, req.Message)
	if err != nil {
		log.Printf("[API] Chat failed for session %s: %v", session.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error processing request",
		})
	}

	inputs := make([]InputSpec, 0, len(reply.RequestedDocuments))
	for _, key := range reply.RequestedDocuments {
		if dt, ok := models.DocumentTypeByKey(key); ok {
			inputs = append(inputs, InputSpec{
				Name:        dt.Name,
				Description: dt.Description,
				DocID:       dt.Key,
			})
		}
	}

	response := fiber.Map{
		"message":    reply.Message,
		"inputs":     inputs,
		"session_id": session.SessionID,
	}
	if reply.SanctionID != "" {
		response["sanction_id"] = reply.SanctionID
	}

	return c.JSON(response)
}

// History returns the conversation transcript for a session
func (h *ChatHandler) History(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	history, err := h.sessions.History(sessionID, 0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch history",
		})
	}
	if len(history) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	formatted := make([]fiber.Map, 0, len(history))
	for _, msg := range history {
		formatted = append(formatted, fiber.Map{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    formatted,
	})
}

// DeleteSession marks a session inactive. The transcript is kept and
// purged later by the cleanup job.
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	if err := h.sessions.Deactivate(sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete session",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"message":    "Session deleted successfully",
	})
}
