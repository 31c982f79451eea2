package handlers

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/services"
)

const answerContentType = "video/webm"

type CandidateHandler struct {
	interviewService services.InterviewService
	worker           services.Worker
	maxFileSize      int64
}

func NewCandidateHandler(
	interviewService services.InterviewService,
	worker services.Worker,
	maxFileSize int64,
) *CandidateHandler {
	return &CandidateHandler{
		interviewService: interviewService,
		worker:           worker,
		maxFileSize:      maxFileSize,
	}
}

// HandleRegister handles POST /candidates
func (h *CandidateHandler) HandleRegister(c *fiber.Ctx) error {
	input := services.RegisterInput{
		RoomCode: c.FormValue("room_code"),
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
	}
	if input.RoomCode == "" || input.Name == "" || input.Email == "" {
		return badRequest(c, "room_code, name and email are required")
	}

	if resume, err := c.FormFile("resume"); err == nil {
		if resume.Size > h.maxFileSize {
			return badRequest(c, fmt.Sprintf("Resume file too large. Max size: %d bytes", h.maxFileSize))
		}
		f, err := resume.Open()
		if err != nil {
			return badRequest(c, "failed to read resume")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return badRequest(c, "failed to read resume")
		}
		input.ResumeName = resume.Filename
		input.Resume = data
	}

	registration, err := h.interviewService.RegisterCandidate(c.UserContext(), input)
	if err != nil {
		return serviceError(err)
	}

	status := fiber.StatusCreated
	if registration.Returning {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(models.RegisterResponse{
		CandidateID:   registration.Candidate.ID,
		InterviewCode: registration.Interview.Code,
		Role:          registration.Interview.Role,
		Returning:     registration.Returning,
		Questions:     registration.Candidate.Questions,
	})
}

// HandleGetQuestions handles GET /candidates/:id/questions
func (h *CandidateHandler) HandleGetQuestions(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}

	candidate, err := h.interviewService.GetCandidateQuestions(candidateID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(models.CandidateQuestionsResponse{
		ID:        candidate.ID,
		Name:      candidate.Name,
		Questions: candidate.Questions,
	})
}

// HandleGetReview handles GET /candidates/:id/review
func (h *CandidateHandler) HandleGetReview(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}

	review, err := h.interviewService.GetCandidateReview(c.UserContext(), candidateID)
	if err != nil {
		return serviceError(err)
	}

	resp := models.ReviewResponse{
		CandidateID: review.Candidate.ID,
		Name:        review.Candidate.Name,
		Items:       make([]models.ReviewItemResponse, 0, len(review.Items)),
	}
	for _, item := range review.Items {
		resp.Items = append(resp.Items, models.ReviewItemResponse{
			Index:    item.Index,
			Question: item.Question.Question,
			Criteria: item.Question.Criteria,
			HasMedia: item.HasMedia,
		})
	}
	return c.JSON(resp)
}

// HandleSubmitAnswer handles POST /candidates/:id/answers
func (h *CandidateHandler) HandleSubmitAnswer(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}

	questionIndex, err := strconv.Atoi(c.FormValue("question_index"))
	if err != nil {
		return badRequest(c, "question_index must be an integer")
	}

	video, err := c.FormFile("video")
	if err != nil {
		return badRequest(c, "video is required")
	}
	if video.Size > h.maxFileSize {
		return badRequest(c, fmt.Sprintf("Video file too large. Max size: %d bytes", h.maxFileSize))
	}

	f, err := video.Open()
	if err != nil {
		return badRequest(c, "failed to read video")
	}
	defer f.Close()

	answer, err := h.interviewService.SubmitAnswer(c.UserContext(), candidateID, questionIndex, f)
	if err != nil {
		return serviceError(err)
	}

	h.worker.EnqueueCandidate(candidateID)

	var resp models.AnswerResponse
	if err := copier.Copy(&resp, answer); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleStreamMedia handles GET /candidates/:id/answers/:index/media
func (h *CandidateHandler) HandleStreamMedia(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid candidate ID format")
	}
	questionIndex, err := c.ParamsInt("index")
	if err != nil {
		return badRequest(c, "Invalid question index")
	}

	media, err := h.interviewService.OpenAnswerMedia(c.UserContext(), candidateID, questionIndex)
	if err != nil {
		return serviceError(err)
	}

	log.WithField("candidate_id", candidateID).
		WithField("question_index", questionIndex).
		Debug("🎞️ Streaming answer media")

	c.Set(fiber.HeaderContentType, answerContentType)
	return c.SendStream(media)
}
