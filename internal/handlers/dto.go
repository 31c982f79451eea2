package handlers

import (
	"github.com/jinzhu/copier"

	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/services"
)

func toRecruiterResponse(recruiter *models.Recruiter) (*models.RecruiterResponse, error) {
	resp := new(models.RecruiterResponse)
	if err := copier.Copy(resp, recruiter); err != nil {
		return nil, err
	}
	return resp, nil
}

func toInterviewResponse(interview *models.Interview) (*models.InterviewResponse, error) {
	resp := new(models.InterviewResponse)
	if err := copier.Copy(resp, interview); err != nil {
		return nil, err
	}
	return resp, nil
}

func toInterviewSummaries(summaries []services.InterviewSummary) ([]models.InterviewSummaryResponse, error) {
	out := make([]models.InterviewSummaryResponse, 0, len(summaries))
	for i := range summaries {
		interview, err := toInterviewResponse(&summaries[i].Interview)
		if err != nil {
			return nil, err
		}

		candidates := make([]models.CandidateSummaryResponse, 0, len(summaries[i].Candidates))
		for _, summary := range summaries[i].Candidates {
			var item models.CandidateSummaryResponse
			if err := copier.Copy(&item, &summary.Candidate); err != nil {
				return nil, err
			}
			item.Answered = summary.Answered
			item.Graded = summary.Graded
			item.Total = summary.Total
			if report := summary.Candidate.Report(); report != nil {
				item.Suitability = report.Suitability
			}
			candidates = append(candidates, item)
		}

		out = append(out, models.InterviewSummaryResponse{Interview: *interview, Candidates: candidates})
	}
	return out, nil
}

func toAnswerResponses(answers []models.Answer) ([]models.AnswerResponse, error) {
	out := make([]models.AnswerResponse, 0, len(answers))
	if err := copier.Copy(&out, &answers); err != nil {
		return nil, err
	}
	return out, nil
}

func isGrading(outcome *services.GradingOutcome) bool {
	return outcome.Pending() || (outcome.Complete && outcome.Report == nil)
}

func toReportResponse(outcome *services.GradingOutcome) (*models.ReportResponse, error) {
	answers, err := toAnswerResponses(outcome.Answers)
	if err != nil {
		return nil, err
	}

	return &models.ReportResponse{
		CandidateID: outcome.Candidate.ID,
		Name:        outcome.Candidate.Name,
		Email:       outcome.Candidate.Email,
		Role:        outcome.Interview.Role,
		Complete:    outcome.Complete,
		Grading:     isGrading(outcome),
		TotalScore:  outcome.TotalScore,
		MaxScore:    outcome.MaxScore,
		Answers:     answers,
		Report:      outcome.Report,
	}, nil
}
