package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/services"
)

// seedNamespace derives a stable group id per file and role, so a rerun
// replaces the role's earlier points.
var seedNamespace = uuid.MustParse("5b0f6c1e-9a43-4f0e-8d7c-2f1a6e3c9b10")

type seedRole struct {
	Role      string                `json:"role"`
	Questions []models.QuestionSpec `json:"questions"`
}

// Seeds the question bank with curated questions so role-based generation
// has examples to steer away from. Usage: seed_question_bank <file.json>...
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	config.InitLogger(cfg.App.LogLevel)
	log.Info("🚀 Starting question bank seeding...")

	if cfg.Qdrant.URL == "" {
		log.Fatal("❌ QDRANT_URL is not set")
	}

	ctx := context.Background()

	client, err := services.NewGenAIClient(ctx, cfg.Gemini)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	bank, err := services.NewQuestionBank(cfg.Qdrant, services.NewGeminiService(client, cfg.Gemini))
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	if err := bank.InitCollection(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	successCount := 0
	failCount := 0

	for _, path := range os.Args[1:] {
		logger := log.WithField("path", path)

		data, err := os.ReadFile(path)
		if err != nil {
			logger.WithError(err).Warn("⚠️ File not readable, skipping")
			failCount++
			continue
		}

		var roles []seedRole
		if err := json.Unmarshal(data, &roles); err != nil {
			logger.WithError(err).Warn("⚠️ File is not a role list, skipping")
			failCount++
			continue
		}

		for _, role := range roles {
			id := uuid.NewSHA1(seedNamespace, []byte(path+"|"+role.Role))
			if err := bank.DeleteInterview(ctx, id); err != nil {
				logger.WithField("role", role.Role).WithError(err).Warn("⚠️ Failed to clear earlier points")
			}
			if err := bank.Index(ctx, id, role.Role, role.Questions); err != nil {
				logger.WithField("role", role.Role).WithError(err).Error("❌ Failed to index role")
				failCount++
				continue
			}
			logger.WithField("role", role.Role).WithField("questions", len(role.Questions)).Info("✅ Role indexed")
			successCount++
		}
	}

	log.WithField("success", successCount).WithField("failed", failCount).Info("🎉 Seeding completed")
}
