package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Candidate is one applicant registered against one Interview. Questions is
// frozen at registration and is the index space for every Answer.
type Candidate struct {
	ID                uuid.UUID                         `gorm:"type:char(36);primaryKey" json:"id"`
	InterviewID       uuid.UUID                         `gorm:"type:char(36);not null;uniqueIndex:idx_candidates_interview_email" json:"interview_id"`
	Name              string                            `gorm:"type:varchar(100);not null" json:"name"`
	Email             string                            `gorm:"type:varchar(100);not null;uniqueIndex:idx_candidates_interview_email" json:"email"`
	ResumeKey         *string                           `gorm:"type:varchar(255)" json:"resume_key,omitempty"`
	Questions         datatypes.JSONSlice[QuestionSpec] `gorm:"not null" json:"questions"`
	ReportData        *string                           `gorm:"type:text" json:"-"`
	ReportGeneratedAt *time.Time                        `json:"report_generated_at,omitempty"`
	CreatedAt         time.Time                         `json:"created_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Report decodes the stored AggregateReport, nil when none is stored.
func (c *Candidate) Report() *AggregateReport {
	if c.ReportData == nil || c.ReportGeneratedAt == nil {
		return nil
	}
	var report AggregateReport
	if err := json.Unmarshal([]byte(*c.ReportData), &report); err != nil {
		return nil
	}
	return &report
}
