package repositories

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"talentflow/interview-grader/internal/models"
)

type CandidateRepository interface {
	Create(candidate *models.Candidate) error
	FindByID(id uuid.UUID) (*models.Candidate, error)
	FindByInterviewAndEmail(interviewID uuid.UUID, email string) (*models.Candidate, error)
	ListByInterview(interviewID uuid.UUID) ([]models.Candidate, error)
	ListByInterviews(interviewIDs []uuid.UUID) ([]models.Candidate, error)
	SaveReportIfAbsent(id uuid.UUID, report *models.AggregateReport, answerRevisions int) (bool, error)
	ClearReport(id uuid.UUID) error
	FindNeedingGrading(limit int, staleBefore time.Time) ([]uuid.UUID, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) Create(candidate *models.Candidate) error {
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	if err := r.db.Create(candidate).Error; err != nil {
		return errors.Wrap(err, "failed to create candidate")
	}
	return nil
}

func (r *candidateRepository) FindByID(id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.Where("id = ?", id).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find candidate")
	}
	return &candidate, nil
}

func (r *candidateRepository) FindByInterviewAndEmail(interviewID uuid.UUID, email string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.
		Where("interview_id = ? AND email = ?", interviewID, email).
		First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find candidate by email")
	}
	return &candidate, nil
}

func (r *candidateRepository) ListByInterview(interviewID uuid.UUID) ([]models.Candidate, error) {
	return r.ListByInterviews([]uuid.UUID{interviewID})
}

func (r *candidateRepository) ListByInterviews(interviewIDs []uuid.UUID) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if len(interviewIDs) == 0 {
		return candidates, nil
	}
	err := r.db.
		Where("interview_id IN ?", interviewIDs).
		Order("created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list candidates")
	}
	return candidates, nil
}

// SaveReportIfAbsent stores the report only while none is stored, every
// answer is graded and the answers' revision total still equals
// answerRevisions. It reports false when another writer got there first or
// an answer was resubmitted after the report was built.
func (r *candidateRepository) SaveReportIfAbsent(id uuid.UUID, report *models.AggregateReport, answerRevisions int) (bool, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode report")
	}

	ungraded := r.db.Model(&models.Answer{}).
		Select("1").
		Where("candidate_id = ? AND status NOT IN ?", id, []models.AnswerStatus{models.AnswerGraded, models.AnswerFailed})
	revisions := r.db.Model(&models.Answer{}).
		Select("COALESCE(SUM(revision), 0)").
		Where("candidate_id = ?", id)

	result := r.db.Model(&models.Candidate{}).
		Where("id = ? AND report_generated_at IS NULL", id).
		Where("NOT EXISTS (?)", ungraded).
		Where("(?) = ?", revisions, answerRevisions).
		Updates(map[string]interface{}{
			"report_data":         string(data),
			"report_generated_at": time.Now(),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to save report")
	}

	return result.RowsAffected == 1, nil
}

func (r *candidateRepository) ClearReport(id uuid.UUID) error {
	result := r.db.Model(&models.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"report_data":         nil,
			"report_generated_at": nil,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear report")
	}
	return nil
}

// FindNeedingGrading returns candidates holding an ungraded answer or an
// answer whose grading claim was taken before staleBefore.
func (r *candidateRepository) FindNeedingGrading(limit int, staleBefore time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.Answer{}).
		Distinct("candidate_id").
		Where("status = ? OR (status = ? AND (claimed_at IS NULL OR claimed_at < ?))",
			models.AnswerUngraded, models.AnswerGrading, staleBefore).
		Limit(limit).
		Pluck("candidate_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find candidates needing grading")
	}
	return ids, nil
}
