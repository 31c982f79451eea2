package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/repositories"
)

var (
	ErrRecruiterNotFound = errors.New("recruiter not found")
	ErrRecruiterExists   = errors.New("username already taken")
	ErrInterviewNotFound = errors.New("interview not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrAnswerNotFound    = errors.New("answer not found")
	ErrNameMismatch      = errors.New("email already registered under a different name")
	ErrQuestionIndex     = errors.New("question index out of range")
	ErrNoQuestions       = errors.New("interview needs at least one question")
	ErrInvalidInput      = errors.New("invalid input")
)

const (
	roomCodeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength       = 4
	roomCodeMaxAttempts  = 20
	defaultQuestionCount = 5
)

const (
	ModeAI     = "ai"
	ModeManual = "manual"
)

type CreateInterviewInput struct {
	RecruiterID uuid.UUID
	Role        string
	Mode        string
	Count       int
	Questions   []models.QuestionSpec
}

type RegisterInput struct {
	RoomCode   string
	Name       string
	Email      string
	ResumeName string
	Resume     []byte
}

type Registration struct {
	Candidate *models.Candidate
	Interview *models.Interview
	Returning bool
}

type CandidateSummary struct {
	Candidate models.Candidate
	Answered  int
	Total     int
	Graded    int
}

type InterviewSummary struct {
	Interview  models.Interview
	Candidates []CandidateSummary
}

type ReviewItem struct {
	Index    int
	Question models.QuestionSpec
	HasMedia bool
}

type CandidateReview struct {
	Candidate *models.Candidate
	Items     []ReviewItem
}

type InterviewService interface {
	CreateRecruiter(username, fullName string) (*models.Recruiter, error)
	DeleteRecruiter(ctx context.Context, recruiterID uuid.UUID) error
	CreateInterview(ctx context.Context, input CreateInterviewInput) (*models.Interview, error)
	ListInterviews(recruiterID uuid.UUID) ([]InterviewSummary, error)
	GetInterview(code string) (*models.Interview, error)
	RegisterCandidate(ctx context.Context, input RegisterInput) (*Registration, error)
	SubmitAnswer(ctx context.Context, candidateID uuid.UUID, questionIndex int, media io.Reader) (*models.Answer, error)
	GetCandidateQuestions(candidateID uuid.UUID) (*models.Candidate, error)
	GetCandidateReview(ctx context.Context, candidateID uuid.UUID) (*CandidateReview, error)
	OpenAnswerMedia(ctx context.Context, candidateID uuid.UUID, questionIndex int) (io.ReadCloser, error)
}

type interviewService struct {
	recruiterRepo repositories.RecruiterRepository
	interviewRepo repositories.InterviewRepository
	candidateRepo repositories.CandidateRepository
	answerRepo    repositories.AnswerRepository
	storage       StorageService
	extractor     TextExtractor
	synthesizer   QuestionSynthesizer
	bank          QuestionBank
	invalidate    bool
}

func NewInterviewService(
	recruiterRepo repositories.RecruiterRepository,
	interviewRepo repositories.InterviewRepository,
	candidateRepo repositories.CandidateRepository,
	answerRepo repositories.AnswerRepository,
	storage StorageService,
	extractor TextExtractor,
	synthesizer QuestionSynthesizer,
	bank QuestionBank,
	reportCfg config.ReportConfig,
) InterviewService {
	return &interviewService{
		recruiterRepo: recruiterRepo,
		interviewRepo: interviewRepo,
		candidateRepo: candidateRepo,
		answerRepo:    answerRepo,
		storage:       storage,
		extractor:     extractor,
		synthesizer:   synthesizer,
		bank:          bank,
		invalidate:    reportCfg.Invalidate(),
	}
}

func (s *interviewService) CreateRecruiter(username, fullName string) (*models.Recruiter, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.Wrap(ErrInvalidInput, "username is required")
	}

	if _, err := s.recruiterRepo.FindByUsername(username); err == nil {
		return nil, ErrRecruiterExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	recruiter := &models.Recruiter{
		ID:       uuid.New(),
		Username: username,
		FullName: strings.TrimSpace(fullName),
	}
	if err := s.recruiterRepo.Create(recruiter); err != nil {
		return nil, err
	}

	log.WithField("recruiter_id", recruiter.ID).Info("✅ Recruiter created")
	return recruiter, nil
}

// DeleteRecruiter removes the recruiter's rooms, candidates and answers.
// Stored files and question-bank entries are cleaned up afterwards; a
// cleanup failure is logged and does not undo the delete.
func (s *interviewService) DeleteRecruiter(ctx context.Context, recruiterID uuid.UUID) error {
	deleted, err := s.recruiterRepo.Delete(recruiterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRecruiterNotFound
		}
		return err
	}

	for _, candidateID := range deleted.CandidateIDs {
		if err := s.storage.DeleteDir(ctx, candidateID.String()); err != nil {
			log.WithField("candidate_id", candidateID).WithError(err).Warn("⚠️ Failed to delete candidate files")
		}
	}
	for _, interviewID := range deleted.InterviewIDs {
		if err := s.bank.DeleteInterview(ctx, interviewID); err != nil {
			log.WithField("interview_id", interviewID).WithError(err).Warn("⚠️ Failed to delete interview questions from bank")
		}
	}

	log.WithField("recruiter_id", recruiterID).
		WithField("interviews", len(deleted.InterviewIDs)).
		WithField("candidates", len(deleted.CandidateIDs)).
		Info("🗑️ Recruiter deleted")
	return nil
}

func (s *interviewService) CreateInterview(ctx context.Context, input CreateInterviewInput) (*models.Interview, error) {
	role := strings.TrimSpace(input.Role)
	if role == "" {
		return nil, errors.Wrap(ErrInvalidInput, "role is required")
	}

	if _, err := s.recruiterRepo.FindByID(input.RecruiterID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecruiterNotFound
		}
		return nil, err
	}

	var questions []models.QuestionSpec
	switch input.Mode {
	case ModeManual:
		for _, q := range input.Questions {
			q = q.Normalize(models.DefaultCriteria)
			if q.Question != "" {
				questions = append(questions, q)
			}
		}
		if len(questions) == 0 {
			return nil, ErrNoQuestions
		}
	case ModeAI, "":
		count := input.Count
		if count <= 0 {
			count = defaultQuestionCount
		}
		questions = s.synthesizer.GenerateRoleQuestions(ctx, role, count)
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown mode %q", input.Mode)
	}

	code, err := s.newRoomCode()
	if err != nil {
		return nil, err
	}

	interview := &models.Interview{
		ID:          uuid.New(),
		Code:        code,
		RecruiterID: input.RecruiterID,
		Role:        role,
		Questions:   questions,
	}
	if err := s.interviewRepo.Create(interview); err != nil {
		return nil, err
	}

	if err := s.bank.Index(ctx, interview.ID, role, questions); err != nil {
		log.WithField("interview_id", interview.ID).WithError(err).Warn("⚠️ Failed to index questions")
	}

	log.WithField("interview_id", interview.ID).
		WithField("code", code).
		WithField("questions", len(questions)).
		Info("✅ Interview created")
	return interview, nil
}

func (s *interviewService) newRoomCode() (string, error) {
	for attempt := 0; attempt < roomCodeMaxAttempts; attempt++ {
		code := randomRoomCode()
		exists, err := s.interviewRepo.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a free room code after %d attempts", roomCodeMaxAttempts)
}

func randomRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

func (s *interviewService) ListInterviews(recruiterID uuid.UUID) ([]InterviewSummary, error) {
	interviews, err := s.interviewRepo.ListByRecruiter(recruiterID)
	if err != nil {
		return nil, err
	}

	interviewIDs := make([]uuid.UUID, 0, len(interviews))
	for _, interview := range interviews {
		interviewIDs = append(interviewIDs, interview.ID)
	}
	candidates, err := s.candidateRepo.ListByInterviews(interviewIDs)
	if err != nil {
		return nil, err
	}

	candidateIDs := make([]uuid.UUID, 0, len(candidates))
	for _, candidate := range candidates {
		candidateIDs = append(candidateIDs, candidate.ID)
	}
	answers, err := s.answerRepo.ListByCandidates(candidateIDs)
	if err != nil {
		return nil, err
	}

	answered := make(map[uuid.UUID]int)
	graded := make(map[uuid.UUID]int)
	for i := range answers {
		answered[answers[i].CandidateID]++
		if answers[i].IsGraded() {
			graded[answers[i].CandidateID]++
		}
	}

	byInterview := make(map[uuid.UUID][]CandidateSummary)
	for _, candidate := range candidates {
		byInterview[candidate.InterviewID] = append(byInterview[candidate.InterviewID], CandidateSummary{
			Candidate: candidate,
			Answered:  answered[candidate.ID],
			Total:     len(candidate.Questions),
			Graded:    graded[candidate.ID],
		})
	}

	summaries := make([]InterviewSummary, 0, len(interviews))
	for _, interview := range interviews {
		summaries = append(summaries, InterviewSummary{
			Interview:  interview,
			Candidates: byInterview[interview.ID],
		})
	}
	return summaries, nil
}

func (s *interviewService) GetInterview(code string) (*models.Interview, error) {
	interview, err := s.interviewRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, err
	}
	return interview, nil
}

// RegisterCandidate admits a candidate to a room. The same email with the
// same name re-enters the existing registration; the question sequence is
// frozen when the candidate is first created.
func (s *interviewService) RegisterCandidate(ctx context.Context, input RegisterInput) (*Registration, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, errors.Wrap(ErrInvalidInput, "name and email are required")
	}

	interview, err := s.GetInterview(input.RoomCode)
	if err != nil {
		return nil, err
	}

	if existing, err := s.findReturning(interview, email, name); existing != nil || err != nil {
		return existing, err
	}

	candidate := &models.Candidate{
		ID:          uuid.New(),
		InterviewID: interview.ID,
		Name:        name,
		Email:       email,
	}
	questions := append([]models.QuestionSpec{}, interview.Questions...)
	questions = append(questions, s.resumeQuestions(ctx, candidate, interview.Role, input)...)
	candidate.Questions = questions

	if err := s.candidateRepo.Create(candidate); err != nil {
		s.discardFiles(ctx, candidate)
		// a concurrent registration for the same email may have won
		if existing, findErr := s.findReturning(interview, email, name); existing != nil || findErr != nil {
			return existing, findErr
		}
		return nil, err
	}

	log.WithField("candidate_id", candidate.ID).
		WithField("interview_id", interview.ID).
		WithField("questions", len(questions)).
		Info("✅ Candidate registered")
	return &Registration{Candidate: candidate, Interview: interview}, nil
}

// discardFiles removes blobs stored for a candidate row that was never
// created.
func (s *interviewService) discardFiles(ctx context.Context, candidate *models.Candidate) {
	if candidate.ResumeKey == nil {
		return
	}
	if err := s.storage.DeleteDir(ctx, candidate.ID.String()); err != nil {
		log.WithField("candidate_id", candidate.ID).WithError(err).Warn("⚠️ Failed to delete files of unsaved candidate")
	}
}

func (s *interviewService) findReturning(interview *models.Interview, email, name string) (*Registration, error) {
	existing, err := s.candidateRepo.FindByInterviewAndEmail(interview.ID, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(existing.Name), name) {
		return nil, ErrNameMismatch
	}
	return &Registration{Candidate: existing, Interview: interview, Returning: true}, nil
}

// resumeQuestions stores the resume and asks for tailored questions. The
// file is kept even when no text comes out of it; any failure means no
// extra questions.
func (s *interviewService) resumeQuestions(ctx context.Context, candidate *models.Candidate, role string, input RegisterInput) []models.QuestionSpec {
	if len(input.Resume) == 0 {
		return nil
	}
	logger := log.WithField("candidate_id", candidate.ID)

	key := CandidateKey(candidate.ID.String(), "resume"+strings.ToLower(filepath.Ext(input.ResumeName)))
	if err := s.storage.Save(ctx, key, bytes.NewReader(input.Resume)); err != nil {
		logger.WithError(err).Warn("⚠️ Failed to store resume")
	} else {
		candidate.ResumeKey = &key
	}

	text, err := s.extractor.ExtractText(input.ResumeName, input.Resume)
	if err != nil {
		logger.WithError(err).Warn("⚠️ Resume text unavailable, skipping resume questions")
		return nil
	}

	return s.synthesizer.GenerateResumeQuestions(ctx, text, role)
}

func (s *interviewService) findCandidate(candidateID uuid.UUID) (*models.Candidate, error) {
	candidate, err := s.candidateRepo.FindByID(candidateID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return candidate, nil
}

// SubmitAnswer stores the recording for questionIndex and resets that
// answer to ungraded. A stored report is cleared when configured to, so it
// is rebuilt once grading completes again.
func (s *interviewService) SubmitAnswer(ctx context.Context, candidateID uuid.UUID, questionIndex int, media io.Reader) (*models.Answer, error) {
	candidate, err := s.findCandidate(candidateID)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(candidate.Questions) {
		return nil, ErrQuestionIndex
	}

	key := answerMediaKey(candidateID, questionIndex)
	if err := s.storage.Save(ctx, key, media); err != nil {
		return nil, err
	}

	answer, err := s.answerRepo.UpsertSubmission(candidateID, questionIndex, key)
	if err != nil {
		return nil, err
	}

	// a grading pass may store a report at any moment, so always clear
	if s.invalidate {
		if err := s.candidateRepo.ClearReport(candidateID); err != nil {
			return nil, err
		}
		if answer.Revision > 1 {
			log.WithField("candidate_id", candidateID).Info("♻️ Report cleared after resubmission")
		}
	}

	log.WithField("candidate_id", candidateID).
		WithField("question_index", questionIndex).
		WithField("revision", answer.Revision).
		Info("📥 Answer submitted")
	return answer, nil
}

func answerMediaKey(candidateID uuid.UUID, questionIndex int) string {
	return CandidateKey(candidateID.String(), fmt.Sprintf("q%d.webm", questionIndex))
}

func (s *interviewService) GetCandidateQuestions(candidateID uuid.UUID) (*models.Candidate, error) {
	return s.findCandidate(candidateID)
}

func (s *interviewService) GetCandidateReview(ctx context.Context, candidateID uuid.UUID) (*CandidateReview, error) {
	candidate, err := s.findCandidate(candidateID)
	if err != nil {
		return nil, err
	}

	review := &CandidateReview{Candidate: candidate}
	for i, q := range candidate.Questions {
		size, err := s.storage.Stat(ctx, answerMediaKey(candidateID, i))
		if err != nil && !errors.Is(err, ErrBlobNotFound) {
			return nil, err
		}
		review.Items = append(review.Items, ReviewItem{Index: i, Question: q, HasMedia: size > 0})
	}
	return review, nil
}

func (s *interviewService) OpenAnswerMedia(ctx context.Context, candidateID uuid.UUID, questionIndex int) (io.ReadCloser, error) {
	answer, err := s.answerRepo.FindByCandidateAndIndex(candidateID, questionIndex)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}

	rc, err := s.storage.Open(ctx, answer.MediaKey)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}
	return rc, nil
}
