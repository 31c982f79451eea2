package services

import (
	"fmt"
	"strings"

	"talentflow/interview-grader/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildRoleQuestionsPrompt asks for count questions with scoring criteria.
// Previously used questions for similar roles are listed so the model can
// avoid repeating them.
func (pb *PromptBuilder) BuildRoleQuestionsPrompt(role string, count int, previous []models.QuestionSpec) string {
	var avoid string
	if len(previous) > 0 {
		var b strings.Builder
		b.WriteString("\nQUESTIONS ALREADY USED FOR SIMILAR ROLES (do not repeat them):\n")
		for _, q := range previous {
			b.WriteString("- ")
			b.WriteString(q.Question)
			b.WriteString("\n")
		}
		avoid = b.String()
	}

	return fmt.Sprintf(`You are a senior recruiter preparing a video interview for a "%s" position.

Create exactly %d interview questions. For each question define specific scoring criteria: what a strong answer must contain.
%s
Return your response as a JSON array of objects:
[
  {"question": "<question text>", "criteria": "<criteria for this question>"}
]

Return only the JSON array.`, role, count, avoid)
}

func (pb *PromptBuilder) BuildResumeQuestionsPrompt(resumeText, role string, count int) string {
	return fmt.Sprintf(`You are interviewing a candidate for a "%s" position.

CANDIDATE RESUME (excerpt):
%s

Generate %d specific questions that verify claims made in this resume. Include scoring criteria for each.

Return your response as a JSON array of objects:
[
  {"question": "<question text>", "criteria": "<criteria for this question>"}
]`, role, resumeText, count)
}

func (pb *PromptBuilder) BuildGradingPrompt(q models.QuestionSpec) string {
	return fmt.Sprintf(`You are an interviewer reviewing a recorded video answer.

QUESTION:
%s

SCORING CRITERIA:
%s

Watch the video and evaluate the answer.
1. If the candidate is silent or gives no answer, the score is 0 and the rationale is "no answer detected".
2. Otherwise score from 0 to 10 against the criteria and explain the score in 2-3 sentences referencing the criteria.

Return your response in the following JSON format:
{
  "score": <number 0-10>,
  "rationale": "<feedback>"
}`, q.Question, q.Criteria)
}

func (pb *PromptBuilder) BuildReportPrompt(candidateName, role string, results []models.QAResult) string {
	var dossier strings.Builder
	for _, r := range results {
		dossier.WriteString(fmt.Sprintf("- Q: %s\n  Score: %.1f\n  Feedback: %s\n\n", r.Question, r.Score, r.Rationale))
	}

	return fmt.Sprintf(`Analyze this interview performance.

CANDIDATE: %s
ROLE: %s

PERFORMANCE:
%s
Return your response in the following JSON format:
{
  "suitability": "High" | "Medium" | "Low",
  "strengths": ["<2-3 key strengths>"],
  "weaknesses": ["<2-3 areas to improve>"],
  "final_comment": "<a professional paragraph summarizing the candidate>"
}`, candidateName, role, dossier.String())
}
