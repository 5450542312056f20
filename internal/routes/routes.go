package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vittam-ai/vittam-backend/internal/handlers"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, health *handlers.HealthHandler, chat *handlers.ChatHandler, documents *handlers.DocumentHandler) {

	// Health checks
	app.Get("/", health.Check)
	app.Get("/health", health.Check)

	// Conversation routes
	app.Post("/session", chat.CreateSession)
	app.Post("/chat", chat.Chat)
	app.Get("/session/:id/history", chat.History)
	app.Delete("/session/:id", chat.DeleteSession)

	// Document routes
	app.Post("/upload", documents.Upload)
	app.Get("/documents/:session_id", documents.List)
	app.Post("/documents/:session_id/verify", documents.VerifySession)
	app.Post("/documents/verify/:document_id", documents.VerifyOne)
}
