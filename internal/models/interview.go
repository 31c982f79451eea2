package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Interview is a recruiter's room: a role and its base question set. It is
// never updated after creation.
type Interview struct {
	ID          uuid.UUID                         `gorm:"type:char(36);primaryKey" json:"id"`
	Code        string                            `gorm:"type:varchar(4);uniqueIndex;not null" json:"code"`
	RecruiterID uuid.UUID                         `gorm:"type:char(36);index;not null" json:"recruiter_id"`
	Role        string                            `gorm:"type:varchar(100);not null" json:"role"`
	Questions   datatypes.JSONSlice[QuestionSpec] `gorm:"not null" json:"questions"`
	CreatedAt   time.Time                         `gorm:"index" json:"created_at"`
}

func (Interview) TableName() string {
	return "interviews"
}
