package models

import (
	"time"

	"github.com/google/uuid"
)

type CreateRecruiterRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type RecruiterResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInterviewRequest struct {
	Role      string         `json:"role"`
	Mode      string         `json:"mode"`
	Count     int            `json:"count"`
	Questions []QuestionSpec `json:"questions"`
}

type InterviewResponse struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"code"`
	Role      string         `json:"role"`
	Questions []QuestionSpec `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

type CandidateSummaryResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Answered    int         `json:"answered"`
	Graded      int         `json:"graded"`
	Total       int         `json:"total"`
	Suitability Suitability `json:"suitability,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type InterviewSummaryResponse struct {
	Interview  InterviewResponse          `json:"interview"`
	Candidates []CandidateSummaryResponse `json:"candidates"`
}

type RegisterResponse struct {
	CandidateID   uuid.UUID      `json:"candidate_id"`
	InterviewCode string         `json:"interview_code"`
	Role          string         `json:"role"`
	Returning     bool           `json:"returning"`
	Questions     []QuestionSpec `json:"questions"`
}

type CandidateQuestionsResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Questions []QuestionSpec `json:"questions"`
}

type AnswerResponse struct {
	QuestionIndex int          `json:"question_index"`
	Status        AnswerStatus `json:"status"`
	Score         float64      `json:"score"`
	Rationale     string       `json:"rationale"`
	Revision      int          `json:"revision"`
	GradedAt      *time.Time   `json:"graded_at,omitempty"`
}

type ReviewItemResponse struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Criteria string `json:"criteria"`
	HasMedia bool   `json:"has_media"`
}

type ReviewResponse struct {
	CandidateID uuid.UUID            `json:"candidate_id"`
	Name        string               `json:"name"`
	Items       []ReviewItemResponse `json:"items"`
}

type ReportResponse struct {
	CandidateID uuid.UUID        `json:"candidate_id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Role        string           `json:"role"`
	Complete    bool             `json:"complete"`
	Grading     bool             `json:"grading"`
	TotalScore  float64          `json:"total_score"`
	MaxScore    float64          `json:"max_score"`
	Answers     []AnswerResponse `json:"answers"`
	Report      *AggregateReport `json:"report,omitempty"`
}
