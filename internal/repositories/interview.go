package repositories

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"talentflow/interview-grader/internal/models"
)

type InterviewRepository interface {
	Create(interview *models.Interview) error
	FindByID(id uuid.UUID) (*models.Interview, error)
	FindByCode(code string) (*models.Interview, error)
	CodeExists(code string) (bool, error)
	ListByRecruiter(recruiterID uuid.UUID) ([]models.Interview, error)
}

type interviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) Create(interview *models.Interview) error {
	if interview.ID == uuid.Nil {
		interview.ID = uuid.New()
	}
	if err := r.db.Create(interview).Error; err != nil {
		return errors.Wrap(err, "failed to create interview")
	}
	return nil
}

func (r *interviewRepository) FindByID(id uuid.UUID) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.Where("id = ?", id).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find interview")
	}
	return &interview, nil
}

func (r *interviewRepository) FindByCode(code string) (*models.Interview, error) {
	var interview models.Interview
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := r.db.Where("code = ?", code).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find interview by code")
	}
	return &interview, nil
}

func (r *interviewRepository) CodeExists(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Interview{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check interview code")
	}
	return count > 0, nil
}

func (r *interviewRepository) ListByRecruiter(recruiterID uuid.UUID) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Find(&interviews).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list interviews")
	}
	return interviews, nil
}
