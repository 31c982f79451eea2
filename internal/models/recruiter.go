package models

import (
	"time"

	"github.com/google/uuid"
)

type Recruiter struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	FullName  string    `gorm:"type:varchar(100)" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Recruiter) TableName() string {
	return "recruiters"
}
