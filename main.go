package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/vittam-ai/vittam-backend/database"
	"github.com/vittam-ai/vittam-backend/internal/agent"
	"github.com/vittam-ai/vittam-backend/internal/filestore"
	"github.com/vittam-ai/vittam-backend/internal/handlers"
	"github.com/vittam-ai/vittam-backend/internal/jobs"
	"github.com/vittam-ai/vittam-backend/internal/llm"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/routes"
	"github.com/vittam-ai/vittam-backend/internal/services"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

const (
	version = "1.0.0"

	defaultModel       = "claude-sonnet-4-20250514"
	defaultVisionModel = "claude-sonnet-4-20250514"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Fatal("ANTHROPIC_API_KEY is required")
	}

	chatModel := os.Getenv("VITTAM_MODEL")
	if chatModel == "" {
		chatModel = defaultModel
	}
	visionModel := os.Getenv("VITTAM_VISION_MODEL")
	if visionModel == "" {
		visionModel = defaultVisionModel
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Customer{},
			&models.CustomerLoan{},
			&models.KYC{},
			&models.Session{},
			&models.Conversation{},
			&models.Document{},
			&models.Sanction{},
			&models.OfferTemplate{},
			&models.OTP{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}
	storage.SetStore(store)

	// Document file storage: local disk by default, S3-compatible bucket
	// when USE_REMOTE_UPLOAD=1
	var files filestore.Store
	if os.Getenv("USE_REMOTE_UPLOAD") == "1" {
		remote, err := filestore.NewRemoteStore()
		if err != nil {
			log.Fatal("Failed to initialize remote document storage: ", err)
		}
		files = remote
		log.Println("✅ Using remote object storage for documents")
	} else {
		docDir := os.Getenv("DOCUMENT_STORE_DIR")
		if docDir == "" {
			docDir = "uploaded_documents"
		}
		files = filestore.NewLocalStore(docDir)
	}

	// Anthropic client
	client := llm.NewClient(apiKey)
	log.Printf("✅ Anthropic client initialized (chat: %s, vision: %s)", chatModel, visionModel)

	// OTP delivery is optional: without Twilio credentials the service
	// runs in test mode and accepts the fixed test code
	var notifier services.Notifier
	if twilioNotifier, err := services.NewTwilioNotifier(); err != nil {
		log.Println("⚠️  Twilio not configured - OTP delivery disabled (test mode)")
	} else {
		notifier = twilioNotifier
		log.Println("✅ Twilio SMS notifier initialized")
	}

	// Initialize all services
	customerService := services.NewCustomerService(store)
	offerService := services.NewOfferService(store)
	eligibilityService := services.NewEligibilityService(customerService, offerService)
	identityService := services.NewIdentityService(store, customerService, notifier)
	sessionService := services.NewSessionService(store)
	documentService := services.NewDocumentService(store, files)
	verificationService := services.NewVerificationService(store, files, client, visionModel, nil)
	sanctionService := services.NewSanctionService(store, customerService, documentService)

	caps := agent.NewCapabilities(
		sessionService,
		customerService,
		offerService,
		eligibilityService,
		identityService,
		documentService,
		verificationService,
		sanctionService,
	)
	router := agent.NewRouter(client, chatModel, caps, sessionService, documentService)

	// Start the session cleanup job
	cleanupJob := jobs.NewCleanupJob(store, time.Hour)
	cleanupJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Vittam Loan Assistant v" + version,
		BodyLimit:    2 * 1024 * 1024,
		ErrorHandler: apiErrorHandler,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Handlers and routes
	healthHandler := handlers.NewHealthHandler(version)
	chatHandler := handlers.NewChatHandler(sessionService, router)
	documentHandler := handlers.NewDocumentHandler(sessionService, documentService, verificationService)
	routes.SetupRoutes(app, healthHandler, chatHandler, documentHandler)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		cleanupJob.Stop()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Vittam Loan Assistant starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📁 Documents: %s", getDocumentTarget())
	log.Printf("📱 SMS OTP: %s", getNotifierStatus(notifier))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// apiErrorHandler shapes every error that escapes a handler. Fiber's own
// errors carry client-safe messages (routing, body limit); anything else,
// including recovered panics, gets a generic body.
func apiErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}
	log.Printf("[API] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An error occurred processing your request",
	})
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getDocumentTarget() string {
	if os.Getenv("USE_REMOTE_UPLOAD") == "1" {
		return "Remote bucket: " + os.Getenv("BUCKET_NAME")
	}
	dir := os.Getenv("DOCUMENT_STORE_DIR")
	if dir == "" {
		dir = "uploaded_documents"
	}
	return "Local: " + dir
}

func getNotifierStatus(n services.Notifier) string {
	if n == nil {
		return "Test mode"
	}
	return "Twilio"
}
