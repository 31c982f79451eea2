package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/services"
)

type RecruiterHandler struct {
	interviewService services.InterviewService
}

func NewRecruiterHandler(interviewService services.InterviewService) *RecruiterHandler {
	return &RecruiterHandler{
		interviewService: interviewService,
	}
}

// HandleCreateRecruiter handles POST /recruiters
func (h *RecruiterHandler) HandleCreateRecruiter(c *fiber.Ctx) error {
	var req models.CreateRecruiterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	if req.Username == "" {
		return badRequest(c, "username is required")
	}

	recruiter, err := h.interviewService.CreateRecruiter(req.Username, req.FullName)
	if err != nil {
		return serviceError(err)
	}

	resp, err := toRecruiterResponse(recruiter)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleDeleteRecruiter handles DELETE /recruiters/:id
func (h *RecruiterHandler) HandleDeleteRecruiter(c *fiber.Ctx) error {
	recruiterID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recruiter ID format")
	}

	if err := h.interviewService.DeleteRecruiter(c.UserContext(), recruiterID); err != nil {
		return serviceError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleCreateInterview handles POST /recruiters/:id/interviews
func (h *RecruiterHandler) HandleCreateInterview(c *fiber.Ctx) error {
	recruiterID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recruiter ID format")
	}

	var req models.CreateInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	if req.Role == "" {
		return badRequest(c, "role is required")
	}

	interview, err := h.interviewService.CreateInterview(c.UserContext(), services.CreateInterviewInput{
		RecruiterID: recruiterID,
		Role:        req.Role,
		Mode:        req.Mode,
		Count:       req.Count,
		Questions:   req.Questions,
	})
	if err != nil {
		return serviceError(err)
	}

	resp, err := toInterviewResponse(interview)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleListInterviews handles GET /recruiters/:id/interviews
func (h *RecruiterHandler) HandleListInterviews(c *fiber.Ctx) error {
	recruiterID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recruiter ID format")
	}

	summaries, err := h.interviewService.ListInterviews(recruiterID)
	if err != nil {
		return serviceError(err)
	}

	resp, err := toInterviewSummaries(summaries)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"interviews": resp,
	})
}
