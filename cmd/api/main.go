package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/handlers"
	"talentflow/interview-grader/internal/repositories"
	"talentflow/interview-grader/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	config.InitLogger(cfg.App.LogLevel)
	log.Info("✅ Config loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	recruiterRepo := repositories.NewRecruiterRepository(db)
	interviewRepo := repositories.NewInterviewRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	answerRepo := repositories.NewAnswerRepository(db)
	log.Info("✅ Repositories initialized successfully")

	// Initialize storage
	storageService, err := services.NewStorageService(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	if err := storageService.Init(ctx); err != nil {
		log.Fatalf("❌ Failed to prepare storage: %v", err)
	}
	log.WithField("driver", cfg.Storage.Driver).Info("✅ Storage initialized successfully")

	// Initialize Gemini AI
	genaiClient, err := services.NewGenAIClient(ctx, cfg.Gemini)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	geminiService := services.NewGeminiService(genaiClient, cfg.Gemini)
	mediaService := services.NewMediaService(genaiClient, cfg.Gemini)
	log.WithField("model", cfg.Gemini.TextModel).Info("✅ Gemini AI initialized successfully")

	// Initialize Qdrant
	questionBank, err := services.NewQuestionBank(cfg.Qdrant, geminiService)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	if err := questionBank.InitCollection(ctx); err != nil {
		log.WithError(err).Warn("⚠️ Question bank unavailable, continuing without it")
	}

	// Initialize services
	interviewService := services.NewInterviewService(
		recruiterRepo,
		interviewRepo,
		candidateRepo,
		answerRepo,
		storageService,
		services.NewTextExtractor(cfg.Resume.MaxChars),
		services.NewQuestionSynthesizer(geminiService, questionBank),
		questionBank,
		cfg.Report,
	)
	orchestrator := services.NewGradingOrchestrator(
		candidateRepo,
		interviewRepo,
		answerRepo,
		services.NewAnswerGrader(storageService, mediaService, cfg.Grading),
		services.NewReportAggregator(geminiService),
		cfg.Grading,
	)
	exportService := services.NewExportService(interviewRepo, candidateRepo, answerRepo)
	log.Info("✅ Services initialized successfully")

	// Start worker
	worker := services.NewWorker(candidateRepo, orchestrator, cfg.Grading)
	worker.Start(ctx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "TalentFlow Interview Grader",
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout() + 10*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + (1 << 20),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(handlers.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, handlers.Handlers{
		Recruiter: handlers.NewRecruiterHandler(interviewService),
		Interview: handlers.NewInterviewHandler(interviewService, exportService),
		Candidate: handlers.NewCandidateHandler(interviewService, worker, cfg.Storage.MaxFileSize),
		Report:    handlers.NewReportHandler(orchestrator, worker, exportService, cfg.App.RequestTimeout()),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("❌ Server forced to shutdown")
		}
		worker.Stop()
		cancel()
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.App.Port)
	log.Infof("🚀 Server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
