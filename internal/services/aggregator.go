package services

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/models"
)

// ReportAggregator turns a candidate's graded answers into a suitability
// report. A nil report means "not yet available".
type ReportAggregator interface {
	Summarize(ctx context.Context, candidateName, role string, results []models.QAResult) *models.AggregateReport
}

type reportAggregator struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
}

func NewReportAggregator(gemini GeminiService) ReportAggregator {
	return &reportAggregator{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
	}
}

// Summarize implements ReportAggregator.
func (a *reportAggregator) Summarize(ctx context.Context, candidateName, role string, results []models.QAResult) *models.AggregateReport {
	logger := log.WithField("candidate", candidateName).WithField("answers", len(results))
	logger.Info("🤖 Generating overall report")

	prompt := a.promptBuilder.BuildReportPrompt(candidateName, role, results)
	response, err := a.gemini.GenerateJSONWithRetry(ctx, prompt, reportSchema(), 0.3, 2)
	if err != nil {
		logger.WithError(err).Error("❌ Overall report generation failed")
		return nil
	}

	report, err := decodeReport(response)
	if err != nil {
		logger.WithError(err).Error("❌ Overall report response unusable")
		return nil
	}

	logger.WithField("suitability", report.Suitability).Info("✅ Overall report generated")
	return report
}

func decodeReport(response string) (*models.AggregateReport, error) {
	doc, err := decodeObject(response)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(reportValidator, doc); err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var report models.AggregateReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
