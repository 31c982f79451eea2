package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Recruiter *RecruiterHandler
	Interview *InterviewHandler
	Candidate *CandidateHandler
	Report    *ReportHandler
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/recruiters", h.Recruiter.HandleCreateRecruiter)
	api.Delete("/recruiters/:id", h.Recruiter.HandleDeleteRecruiter)
	api.Post("/recruiters/:id/interviews", h.Recruiter.HandleCreateInterview)
	api.Get("/recruiters/:id/interviews", h.Recruiter.HandleListInterviews)

	api.Get("/interviews/:code/export.xlsx", h.Interview.HandleExportInterview)
	api.Get("/interviews/:code", h.Interview.HandleGetInterview)

	api.Post("/candidates", h.Candidate.HandleRegister)
	api.Get("/candidates/:id/questions", h.Candidate.HandleGetQuestions)
	api.Get("/candidates/:id/review", h.Candidate.HandleGetReview)
	api.Post("/candidates/:id/answers", h.Candidate.HandleSubmitAnswer)
	api.Get("/candidates/:id/answers/:index/media", h.Candidate.HandleStreamMedia)
	api.Get("/candidates/:id/report.pdf", h.Report.HandleGetReportPDF)
	api.Get("/candidates/:id/report", h.Report.HandleGetReport)
}
