package models

import (
	"time"

	"github.com/google/uuid"
)

type AnswerStatus string

const (
	AnswerUngraded AnswerStatus = "ungraded"
	AnswerGrading  AnswerStatus = "grading"
	AnswerGraded   AnswerStatus = "graded"
	// AnswerFailed carries a zero score that needs manual review. It still
	// counts as graded for report completeness.
	AnswerFailed AnswerStatus = "failed"
)

// Answer is a candidate's recording for one question index. Each
// resubmission bumps Revision and returns the answer to AnswerUngraded.
type Answer struct {
	ID            uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	CandidateID   uuid.UUID    `gorm:"type:char(36);not null;uniqueIndex:idx_answers_candidate_index" json:"candidate_id"`
	QuestionIndex int          `gorm:"not null;uniqueIndex:idx_answers_candidate_index" json:"question_index"`
	MediaKey      string       `gorm:"type:varchar(255);not null" json:"media_key"`
	Status        AnswerStatus `gorm:"type:varchar(20);not null;default:'ungraded';index" json:"status"`
	Score         float64      `gorm:"not null;default:0" json:"score"`
	Rationale     string       `gorm:"type:text" json:"rationale"`
	Revision      int          `gorm:"not null;default:1" json:"revision"`
	ClaimToken    *uuid.UUID   `gorm:"type:char(36)" json:"-"`
	ClaimedAt     *time.Time   `json:"-"`
	GradedAt      *time.Time   `json:"graded_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}

func (a *Answer) IsGraded() bool {
	return a.Status == AnswerGraded || a.Status == AnswerFailed
}

// NeedsGrading reports whether the answer is ungraded or holds a grading
// claim taken before staleBefore.
func (a *Answer) NeedsGrading(staleBefore time.Time) bool {
	switch a.Status {
	case AnswerUngraded:
		return true
	case AnswerGrading:
		return a.ClaimedAt == nil || a.ClaimedAt.Before(staleBefore)
	default:
		return false
	}
}
