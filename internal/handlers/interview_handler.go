package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"talentflow/interview-grader/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InterviewHandler struct {
	interviewService services.InterviewService
	exportService    services.ExportService
}

func NewInterviewHandler(
	interviewService services.InterviewService,
	exportService services.ExportService,
) *InterviewHandler {
	return &InterviewHandler{
		interviewService: interviewService,
		exportService:    exportService,
	}
}

// HandleGetInterview handles GET /interviews/:code
func (h *InterviewHandler) HandleGetInterview(c *fiber.Ctx) error {
	interview, err := h.interviewService.GetInterview(c.Params("code"))
	if err != nil {
		return serviceError(err)
	}

	resp, err := toInterviewResponse(interview)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// HandleExportInterview handles GET /interviews/:code/export.xlsx
func (h *InterviewHandler) HandleExportInterview(c *fiber.Ctx) error {
	buf, interview, err := h.exportService.InterviewWorkbook(c.Params("code"))
	if err != nil {
		return serviceError(err)
	}

	c.Attachment(fmt.Sprintf("interview-%s.xlsx", interview.Code))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(buf.Bytes())
}
