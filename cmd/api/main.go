package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/exam-grader/internal/config"
	"alfredoptarigan/exam-grader/internal/handlers"
	"alfredoptarigan/exam-grader/internal/repositories"
	"alfredoptarigan/exam-grader/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	docRepo := repositories.NewDocumentRepository(db)
	sessionRepo := repositories.NewGradingSessionRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	pdfParser := services.NewPDFParserService()
	renderer := services.NewPDFRenderer()
	log.Println("✅ Services initialized successfully")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Worker.RetryMaxAttempts,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize Qdrant
	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := qdrantService.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
	}
	log.Println("✅ Qdrant initialized successfully")

	// Initialize transcription pipeline
	previewProfile := services.QualityProfile{
		DPI:         cfg.Render.PreviewDPI,
		JPEGQuality: cfg.Render.PreviewQuality,
	}
	extractionProfile := services.QualityProfile{
		DPI:         cfg.Render.ExtractionDPI,
		JPEGQuality: cfg.Render.ExtractionQuality,
	}
	controller := services.NewPipelineController(renderer, geminiService, previewProfile, extractionProfile)
	log.Println("✅ Transcription pipeline initialized")

	// Initialize grader and session service
	grader := services.NewGraderService(geminiService)
	sessionService := services.NewGradingSessionService(
		sessionRepo,
		docRepo,
		geminiService,
		qdrantService,
		grader,
	)
	log.Println("✅ Grading services initialized")

	// Initialize worker
	worker := services.NewWorker(sessionRepo, sessionService, cfg.Worker.Concurrency)

	ctx := context.Background()
	worker.Start(ctx)
	log.Println("✅ Worker started successfully")

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(
		docRepo,
		storageService,
		pdfParser,
		cfg.Storage.MaxFileSize,
	)
	transcriptionHandler := handlers.NewTranscriptionHandler(controller, docRepo)
	gradeHandler := handlers.NewGradeHandler(sessionRepo, docRepo, controller, grader, worker)
	resultHandler := handlers.NewResultHandler(sessionRepo)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Exam Grader API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/transcriptions", transcriptionHandler.HandleStart)
	api.Get("/transcriptions/state", transcriptionHandler.HandleState)
	api.Get("/transcriptions/transcript", transcriptionHandler.HandleTranscript)
	api.Post("/transcriptions/reset", transcriptionHandler.HandleReset)
	api.Post("/grade", gradeHandler.HandleGrade)
	api.Get("/grade/state", gradeHandler.HandleGradingState)
	api.Get("/grade/:id", resultHandler.HandleGetResult)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Exam Grader API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/transcriptions",
				"GET /api/v1/transcriptions/state",
				"GET /api/v1/transcriptions/transcript",
				"POST /api/v1/transcriptions/reset",
				"POST /api/v1/grade",
				"GET /api/v1/grade/state",
				"GET /api/v1/grade/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
