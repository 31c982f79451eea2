package repositories

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"talentflow/interview-grader/internal/models"
)

type AnswerRepository interface {
	UpsertSubmission(candidateID uuid.UUID, questionIndex int, mediaKey string) (*models.Answer, error)
	FindByCandidateAndIndex(candidateID uuid.UUID, questionIndex int) (*models.Answer, error)
	ListByCandidate(candidateID uuid.UUID) ([]models.Answer, error)
	ListByCandidates(candidateIDs []uuid.UUID) ([]models.Answer, error)
	CountByCandidate(candidateID uuid.UUID) (int64, error)
	ClaimForGrading(answer *models.Answer, token uuid.UUID, staleBefore time.Time) (bool, error)
	CompleteGrading(answerID, token uuid.UUID, result GradeResult) (bool, error)
}

type GradeResult struct {
	Status    models.AnswerStatus
	Score     float64
	Rationale string
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// UpsertSubmission records a new recording for the index. A resubmission
// bumps the revision and returns the answer to ungraded, which makes any
// claim held on the previous revision stale.
func (r *answerRepository) UpsertSubmission(candidateID uuid.UUID, questionIndex int, mediaKey string) (*models.Answer, error) {
	var answer models.Answer

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("candidate_id = ? AND question_index = ?", candidateID, questionIndex).
			First(&answer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			answer = models.Answer{
				ID:            uuid.New(),
				CandidateID:   candidateID,
				QuestionIndex: questionIndex,
				MediaKey:      mediaKey,
				Status:        models.AnswerUngraded,
				Revision:      1,
			}
			if err := tx.Create(&answer).Error; err != nil {
				return errors.Wrap(err, "failed to create answer")
			}
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to find answer")
		}

		if err := tx.Model(&models.Answer{}).
			Where("id = ?", answer.ID).
			Updates(map[string]interface{}{
				"media_key":   mediaKey,
				"status":      models.AnswerUngraded,
				"score":       0,
				"rationale":   "",
				"revision":    gorm.Expr("revision + 1"),
				"claim_token": nil,
				"claimed_at":  nil,
				"graded_at":   nil,
				"updated_at":  time.Now(),
			}).Error; err != nil {
			return errors.Wrap(err, "failed to reset answer")
		}

		return tx.Where("id = ?", answer.ID).First(&answer).Error
	})
	if err != nil {
		return nil, err
	}

	return &answer, nil
}

func (r *answerRepository) FindByCandidateAndIndex(candidateID uuid.UUID, questionIndex int) (*models.Answer, error) {
	var answer models.Answer
	err := r.db.
		Where("candidate_id = ? AND question_index = ?", candidateID, questionIndex).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find answer")
	}
	return &answer, nil
}

func (r *answerRepository) ListByCandidate(candidateID uuid.UUID) ([]models.Answer, error) {
	return r.ListByCandidates([]uuid.UUID{candidateID})
}

func (r *answerRepository) ListByCandidates(candidateIDs []uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	if len(candidateIDs) == 0 {
		return answers, nil
	}
	err := r.db.
		Where("candidate_id IN ?", candidateIDs).
		Order("candidate_id ASC").
		Order("question_index ASC").
		Find(&answers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list answers")
	}
	return answers, nil
}

func (r *answerRepository) CountByCandidate(candidateID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Answer{}).Where("candidate_id = ?", candidateID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count answers")
	}
	return count, nil
}

// ClaimForGrading moves the answer at its current revision into grading
// under token. It reports false when the answer was claimed by someone
// else, graded already, or resubmitted since it was read.
func (r *answerRepository) ClaimForGrading(answer *models.Answer, token uuid.UUID, staleBefore time.Time) (bool, error) {
	now := time.Now()
	result := r.db.Model(&models.Answer{}).
		Where("id = ? AND revision = ?", answer.ID, answer.Revision).
		Where("status = ? OR (status = ? AND (claimed_at IS NULL OR claimed_at < ?))",
			models.AnswerUngraded, models.AnswerGrading, staleBefore).
		Updates(map[string]interface{}{
			"status":      models.AnswerGrading,
			"claim_token": token,
			"claimed_at":  now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to claim answer")
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	answer.Status = models.AnswerGrading
	answer.ClaimToken = &token
	answer.ClaimedAt = &now
	return true, nil
}

// CompleteGrading writes the verdict only while token still holds the
// claim. False means the verdict belongs to a superseded revision.
func (r *answerRepository) CompleteGrading(answerID, token uuid.UUID, grade GradeResult) (bool, error) {
	now := time.Now()
	result := r.db.Model(&models.Answer{}).
		Where("id = ? AND claim_token = ?", answerID, token).
		Updates(map[string]interface{}{
			"status":      grade.Status,
			"score":       grade.Score,
			"rationale":   grade.Rationale,
			"graded_at":   now,
			"claim_token": nil,
			"claimed_at":  nil,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to complete grading")
	}
	return result.RowsAffected == 1, nil
}
