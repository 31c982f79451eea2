package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/services"
)

type ReportHandler struct {
	orchestrator  services.GradingOrchestrator
	worker        services.Worker
	exportService services.ExportService
	waitTimeout   time.Duration
}

func NewReportHandler(
	orchestrator services.GradingOrchestrator,
	worker services.Worker,
	exportService services.ExportService,
	waitTimeout time.Duration,
) *ReportHandler {
	return &ReportHandler{
		orchestrator:  orchestrator,
		worker:        worker,
		exportService: exportService,
		waitTimeout:   waitTimeout,
	}
}

// HandleGetReport handles GET /candidates/:id/report. With wait=true the
// request blocks on a grading pass up to the request timeout; otherwise
// the current state is returned and unfinished grading is queued.
func (h *ReportHandler) HandleGetReport(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}

	if c.QueryBool("wait") {
		outcome, err := h.waitForGrading(c.UserContext(), candidateID)
		if err != nil {
			return serviceError(err)
		}
		if outcome != nil {
			return h.renderReport(c, outcome)
		}
	}

	outcome, err := h.orchestrator.Snapshot(candidateID)
	if err != nil {
		return serviceError(err)
	}
	if isGrading(outcome) {
		h.worker.EnqueueCandidate(candidateID)
	}
	return h.renderReport(c, outcome)
}

// waitForGrading returns a nil outcome when the wait timed out.
func (h *ReportHandler) waitForGrading(parent context.Context, candidateID uuid.UUID) (*services.GradingOutcome, error) {
	ctx, cancel := context.WithTimeout(parent, h.waitTimeout)
	defer cancel()

	outcome, err := h.worker.EnsureGraded(ctx, candidateID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithField("candidate_id", candidateID).Info("⏳ Report wait timed out, returning snapshot")
			return nil, nil
		}
		return nil, err
	}
	return outcome, nil
}

func (h *ReportHandler) renderReport(c *fiber.Ctx, outcome *services.GradingOutcome) error {
	resp, err := toReportResponse(outcome)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// HandleGetReportPDF handles GET /candidates/:id/report.pdf
func (h *ReportHandler) HandleGetReportPDF(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}

	outcome, err := h.orchestrator.Snapshot(candidateID)
	if err != nil {
		return serviceError(err)
	}

	buf, err := h.exportService.CandidatePDF(outcome)
	if err != nil {
		return serviceError(err)
	}

	c.Attachment(fmt.Sprintf("candidate-%s.pdf", candidateID))
	return c.Send(buf.Bytes())
}
