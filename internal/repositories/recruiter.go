package repositories

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"talentflow/interview-grader/internal/models"
)

type RecruiterRepository interface {
	Create(recruiter *models.Recruiter) error
	FindByID(id uuid.UUID) (*models.Recruiter, error)
	FindByUsername(username string) (*models.Recruiter, error)
	Delete(id uuid.UUID) (*DeletedRecruiter, error)
}

// DeletedRecruiter lists what a cascading delete removed, so callers can
// clean up blobs and question-bank points outside the transaction.
type DeletedRecruiter struct {
	InterviewIDs []uuid.UUID
	CandidateIDs []uuid.UUID
}

type recruiterRepository struct {
	db *gorm.DB
}

func NewRecruiterRepository(db *gorm.DB) RecruiterRepository {
	return &recruiterRepository{db: db}
}

func (r *recruiterRepository) Create(recruiter *models.Recruiter) error {
	if recruiter.ID == uuid.Nil {
		recruiter.ID = uuid.New()
	}
	if err := r.db.Create(recruiter).Error; err != nil {
		return errors.Wrap(err, "failed to create recruiter")
	}
	return nil
}

func (r *recruiterRepository) FindByID(id uuid.UUID) (*models.Recruiter, error) {
	var recruiter models.Recruiter
	if err := r.db.Where("id = ?", id).First(&recruiter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find recruiter")
	}
	return &recruiter, nil
}

func (r *recruiterRepository) FindByUsername(username string) (*models.Recruiter, error) {
	var recruiter models.Recruiter
	if err := r.db.Where("username = ?", username).First(&recruiter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find recruiter")
	}
	return &recruiter, nil
}

// Delete removes the recruiter with its interviews, their candidates and
// the candidates' answers in one transaction.
func (r *recruiterRepository) Delete(id uuid.UUID) (*DeletedRecruiter, error) {
	deleted := &DeletedRecruiter{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Recruiter{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete recruiter")
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&models.Interview{}).
			Where("recruiter_id = ?", id).
			Pluck("id", &deleted.InterviewIDs).Error; err != nil {
			return errors.Wrap(err, "failed to list recruiter interviews")
		}
		if len(deleted.InterviewIDs) == 0 {
			return nil
		}

		if err := tx.Model(&models.Candidate{}).
			Where("interview_id IN ?", deleted.InterviewIDs).
			Pluck("id", &deleted.CandidateIDs).Error; err != nil {
			return errors.Wrap(err, "failed to list interview candidates")
		}

		if len(deleted.CandidateIDs) > 0 {
			if err := tx.Where("candidate_id IN ?", deleted.CandidateIDs).
				Delete(&models.Answer{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete answers")
			}
			if err := tx.Where("id IN ?", deleted.CandidateIDs).
				Delete(&models.Candidate{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete candidates")
			}
		}

		if err := tx.Where("id IN ?", deleted.InterviewIDs).
			Delete(&models.Interview{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete interviews")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
