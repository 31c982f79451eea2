package services

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/models"
)

const (
	maxRoleQuestions     = 20
	resumeQuestionCount  = 2
	resumePromptMaxRunes = 3000
	similarQuestionLimit = 10
)

// FallbackQuestion is what a room gets when generation fails.
var FallbackQuestion = models.QuestionSpec{
	Question: "Tell us about yourself.",
	Criteria: "Confidence, clarity, and relevance.",
}

// QuestionSynthesizer never fails: remote errors degrade to the fallback
// question or to no resume questions.
type QuestionSynthesizer interface {
	GenerateRoleQuestions(ctx context.Context, role string, count int) []models.QuestionSpec
	GenerateResumeQuestions(ctx context.Context, resumeText, role string) []models.QuestionSpec
}

type questionSynthesizer struct {
	gemini        GeminiService
	bank          QuestionBank
	promptBuilder *PromptBuilder
}

func NewQuestionSynthesizer(gemini GeminiService, bank QuestionBank) QuestionSynthesizer {
	return &questionSynthesizer{
		gemini:        gemini,
		bank:          bank,
		promptBuilder: NewPromptBuilder(),
	}
}

// GenerateRoleQuestions implements QuestionSynthesizer.
func (s *questionSynthesizer) GenerateRoleQuestions(ctx context.Context, role string, count int) []models.QuestionSpec {
	if count < 1 {
		count = 1
	}
	if count > maxRoleQuestions {
		count = maxRoleQuestions
	}

	logger := log.WithField("role", role).WithField("count", count)
	logger.Info("🤖 Generating interview questions")

	previous := s.bank.Similar(ctx, role, similarQuestionLimit)
	prompt := s.promptBuilder.BuildRoleQuestionsPrompt(role, count, previous)

	response, err := s.gemini.GenerateJSONWithRetry(ctx, prompt, questionListSchema(), 0.7, 2)
	if err != nil {
		logger.WithError(err).Error("❌ Question generation failed, using fallback")
		return []models.QuestionSpec{FallbackQuestion}
	}

	questions := coerceQuestions(response, models.DefaultCriteria)
	if len(questions) == 0 {
		logger.Warn("⚠️ No usable questions in response, using fallback")
		return []models.QuestionSpec{FallbackQuestion}
	}
	if len(questions) > count {
		questions = questions[:count]
	}

	logger.WithField("generated", len(questions)).Info("✅ Interview questions generated")
	return questions
}

// GenerateResumeQuestions implements QuestionSynthesizer.
func (s *questionSynthesizer) GenerateResumeQuestions(ctx context.Context, resumeText, role string) []models.QuestionSpec {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return []models.QuestionSpec{}
	}

	prompt := s.promptBuilder.BuildResumeQuestionsPrompt(truncateRunes(resumeText, resumePromptMaxRunes), role, resumeQuestionCount)

	response, err := s.gemini.GenerateJSON(ctx, prompt, questionListSchema(), 0.7)
	if err != nil {
		log.WithField("role", role).WithError(err).Error("❌ Resume question generation failed")
		return []models.QuestionSpec{}
	}

	questions := coerceQuestions(response, models.ResumeCriteria)
	if len(questions) > resumeQuestionCount {
		questions = questions[:resumeQuestionCount]
	}
	return questions
}

// coerceQuestions keeps the usable elements of a generated list. Plain
// strings and objects without criteria get placeholder.
func coerceQuestions(response, placeholder string) []models.QuestionSpec {
	questions := []models.QuestionSpec{}

	value, ok := ParseStructured(response)
	if !ok || value.Kind != StructuredArray {
		return questions
	}

	var items []any
	if err := value.Decode(&items); err != nil {
		return questions
	}

	for _, item := range items {
		switch v := item.(type) {
		case string:
			if text := strings.TrimSpace(v); text != "" {
				questions = append(questions, models.QuestionSpec{Question: text, Criteria: placeholder})
			}
		case map[string]any:
			text, _ := v["question"].(string)
			if strings.TrimSpace(text) == "" {
				continue
			}
			criteria, _ := v["criteria"].(string)
			q := models.QuestionSpec{Question: text, Criteria: criteria}
			questions = append(questions, q.Normalize(placeholder))
		}
	}

	return questions
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

