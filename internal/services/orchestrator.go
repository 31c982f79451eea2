package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/repositories"
)

const MaxAnswerScore = 10.0

// GradingOutcome is a candidate's grading state after an EnsureGraded
// pass or a read-only snapshot.
type GradingOutcome struct {
	Candidate  *models.Candidate
	Interview  *models.Interview
	Answers    []models.Answer
	Report     *models.AggregateReport
	Complete   bool
	TotalScore float64
	MaxScore   float64
}

// Pending reports whether some answer is still waiting for a verdict.
func (o *GradingOutcome) Pending() bool {
	for i := range o.Answers {
		if !o.Answers[i].IsGraded() {
			return true
		}
	}
	return false
}

type GradingOrchestrator interface {
	EnsureGraded(ctx context.Context, candidateID uuid.UUID) (*GradingOutcome, error)
	Snapshot(candidateID uuid.UUID) (*GradingOutcome, error)
}

type gradingOrchestrator struct {
	candidateRepo repositories.CandidateRepository
	interviewRepo repositories.InterviewRepository
	answerRepo    repositories.AnswerRepository
	grader        AnswerGrader
	aggregator    ReportAggregator
	claimLease    time.Duration
	group         singleflight.Group
}

func NewGradingOrchestrator(
	candidateRepo repositories.CandidateRepository,
	interviewRepo repositories.InterviewRepository,
	answerRepo repositories.AnswerRepository,
	grader AnswerGrader,
	aggregator ReportAggregator,
	cfg config.GradingConfig,
) GradingOrchestrator {
	return &gradingOrchestrator{
		candidateRepo: candidateRepo,
		interviewRepo: interviewRepo,
		answerRepo:    answerRepo,
		grader:        grader,
		aggregator:    aggregator,
		claimLease:    cfg.ClaimLease(),
	}
}

// EnsureGraded grades every answer that still needs it and, once all are
// graded, stores the aggregate report. Calls for the same candidate in
// this process share one pass; the per-answer claim guards the rest. The
// shared pass is not tied to any caller's context, so a caller that gives
// up returns its own context error while the pass runs on for the others.
func (o *gradingOrchestrator) EnsureGraded(ctx context.Context, candidateID uuid.UUID) (*GradingOutcome, error) {
	pass := context.WithoutCancel(ctx)
	ch := o.group.DoChan(candidateID.String(), func() (interface{}, error) {
		return o.ensureGraded(pass, candidateID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*GradingOutcome), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot implements GradingOrchestrator.
func (o *gradingOrchestrator) Snapshot(candidateID uuid.UUID) (*GradingOutcome, error) {
	candidate, err := o.candidateRepo.FindByID(candidateID)
	if err != nil {
		return nil, err
	}
	return o.outcome(candidate)
}

func (o *gradingOrchestrator) ensureGraded(ctx context.Context, candidateID uuid.UUID) (*GradingOutcome, error) {
	logger := log.WithField("candidate_id", candidateID)

	candidate, err := o.candidateRepo.FindByID(candidateID)
	if err != nil {
		return nil, err
	}

	answers, err := o.answerRepo.ListByCandidate(candidateID)
	if err != nil {
		return nil, err
	}

	staleBefore := time.Now().Add(-o.claimLease)
	for i := range answers {
		answer := &answers[i]
		if !answer.NeedsGrading(staleBefore) {
			continue
		}
		if err := o.gradeAnswer(ctx, candidate, answer, staleBefore); err != nil {
			return nil, err
		}
	}

	outcome, err := o.outcome(candidate)
	if err != nil {
		return nil, err
	}
	if !outcome.Complete || outcome.Report != nil {
		return outcome, nil
	}

	report := o.aggregator.Summarize(ctx, candidate.Name, outcome.Interview.Role, qaResults(candidate, outcome.Answers))
	if report == nil {
		logger.Warn("⚠️ Overall report not available yet")
		return outcome, nil
	}

	saved, err := o.candidateRepo.SaveReportIfAbsent(candidateID, report, answerRevisions(outcome.Answers))
	if err != nil {
		return nil, err
	}
	if !saved {
		logger.Info("📋 Report not stored, already present or answers changed")
	}

	stored, err := o.candidateRepo.FindByID(candidateID)
	if err != nil {
		return nil, err
	}
	outcome.Candidate = stored
	outcome.Report = stored.Report()
	return outcome, nil
}

func (o *gradingOrchestrator) gradeAnswer(ctx context.Context, candidate *models.Candidate, answer *models.Answer, staleBefore time.Time) error {
	logger := log.WithField("candidate_id", candidate.ID).
		WithField("answer_id", answer.ID).
		WithField("question_index", answer.QuestionIndex)

	token := uuid.New()
	claimed, err := o.answerRepo.ClaimForGrading(answer, token, staleBefore)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("⏭️ Answer claimed elsewhere, skipping")
		return nil
	}

	var verdict Verdict
	if answer.QuestionIndex < 0 || answer.QuestionIndex >= len(candidate.Questions) {
		logger.Error("❌ Answer index outside the candidate's question sequence")
		verdict = failedVerdict()
	} else {
		verdict = o.grader.Grade(ctx, answer.MediaKey, candidate.Questions[answer.QuestionIndex])
	}

	status := models.AnswerGraded
	if verdict.Outcome != OutcomeScored {
		status = models.AnswerFailed
	}

	completed, err := o.answerRepo.CompleteGrading(answer.ID, token, repositories.GradeResult{
		Status:    status,
		Score:     verdict.Score,
		Rationale: verdict.Rationale,
	})
	if err != nil {
		return err
	}
	if !completed {
		logger.Info("♻️ Answer resubmitted while grading, verdict dropped")
	}
	return nil
}

func (o *gradingOrchestrator) outcome(candidate *models.Candidate) (*GradingOutcome, error) {
	interview, err := o.interviewRepo.FindByID(candidate.InterviewID)
	if err != nil {
		return nil, err
	}

	answers, err := o.answerRepo.ListByCandidate(candidate.ID)
	if err != nil {
		return nil, err
	}

	outcome := &GradingOutcome{
		Candidate: candidate,
		Interview: interview,
		Answers:   answers,
		Report:    candidate.Report(),
		MaxScore:  MaxAnswerScore * float64(len(candidate.Questions)),
	}

	graded := 0
	for i := range answers {
		if answers[i].IsGraded() {
			graded++
			outcome.TotalScore += answers[i].Score
		}
	}
	outcome.Complete = len(candidate.Questions) > 0 &&
		len(answers) == len(candidate.Questions) &&
		graded == len(answers)

	return outcome, nil
}

func answerRevisions(answers []models.Answer) int {
	total := 0
	for i := range answers {
		total += answers[i].Revision
	}
	return total
}

func qaResults(candidate *models.Candidate, answers []models.Answer) []models.QAResult {
	results := make([]models.QAResult, 0, len(answers))
	for _, answer := range answers {
		question := ""
		if answer.QuestionIndex >= 0 && answer.QuestionIndex < len(candidate.Questions) {
			question = candidate.Questions[answer.QuestionIndex].Question
		}
		results = append(results, models.QAResult{
			Question:  question,
			Score:     answer.Score,
			Rationale: answer.Rationale,
		})
	}
	return results
}
