package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/repositories"
	"talentflow/interview-grader/internal/services"
)

// ErrorHandler renders every error as {"error", "code"}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// serviceError maps domain errors onto HTTP statuses. Anything unknown is
// logged and hidden behind a 500.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrInterviewNotFound),
		errors.Is(err, services.ErrCandidateNotFound),
		errors.Is(err, services.ErrRecruiterNotFound),
		errors.Is(err, services.ErrAnswerNotFound),
		errors.Is(err, repositories.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNameMismatch),
		errors.Is(err, services.ErrRecruiterExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrQuestionIndex),
		errors.Is(err, services.ErrNoQuestions),
		errors.Is(err, services.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrWorkerStopped):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		log.WithError(err).Error("❌ Request failed")
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  fiber.StatusBadRequest,
	})
}
