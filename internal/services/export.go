package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/repositories"
)

var (
	candidateHeaders = []string{"Name", "Email", "Answered", "Graded", "Total score", "Max score", "Suitability", "Registered"}
	answerHeaders    = []string{"Candidate", "Email", "#", "Question", "Status", "Score", "Rationale"}
)

const (
	candidatesSheet = "Candidates"
	answersSheet    = "Answers"
)

type ExportService interface {
	InterviewWorkbook(code string) (*bytes.Buffer, *models.Interview, error)
	CandidatePDF(outcome *GradingOutcome) (*bytes.Buffer, error)
}

type exportService struct {
	interviewRepo repositories.InterviewRepository
	candidateRepo repositories.CandidateRepository
	answerRepo    repositories.AnswerRepository
}

func NewExportService(
	interviewRepo repositories.InterviewRepository,
	candidateRepo repositories.CandidateRepository,
	answerRepo repositories.AnswerRepository,
) ExportService {
	return &exportService{
		interviewRepo: interviewRepo,
		candidateRepo: candidateRepo,
		answerRepo:    answerRepo,
	}
}

// InterviewWorkbook exports a room as XLSX: one row per candidate and one
// row per submitted answer.
func (e *exportService) InterviewWorkbook(code string) (*bytes.Buffer, *models.Interview, error) {
	interview, err := e.interviewRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInterviewNotFound
		}
		return nil, nil, err
	}

	candidates, err := e.candidateRepo.ListByInterview(interview.ID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	answers, err := e.answerRepo.ListByCandidates(ids)
	if err != nil {
		return nil, nil, err
	}

	buf, err := buildInterviewWorkbook(candidates, answers)
	if err != nil {
		return nil, nil, err
	}
	return buf, interview, nil
}

func buildInterviewWorkbook(candidates []models.Candidate, answers []models.Answer) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return nil, errors.Wrap(err, "failed to name candidates sheet")
	}
	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, errors.Wrap(err, "failed to create answers sheet")
	}

	byCandidate := make(map[uuid.UUID][]models.Answer)
	for _, a := range answers {
		byCandidate[a.CandidateID] = append(byCandidate[a.CandidateID], a)
	}

	if err := writeRow(f, candidatesSheet, 1, candidateHeaders); err != nil {
		return nil, errors.Wrap(err, "failed to write candidates header")
	}
	if err := writeRow(f, answersSheet, 1, answerHeaders); err != nil {
		return nil, errors.Wrap(err, "failed to write answers header")
	}

	answerRow := 1
	for i, c := range candidates {
		list := byCandidate[c.ID]
		graded := 0
		total := 0.0
		for _, a := range list {
			if a.IsGraded() {
				graded++
				total += a.Score
			}
		}

		suitability := ""
		if report := c.Report(); report != nil {
			suitability = string(report.Suitability)
		}

		row := []interface{}{
			c.Name,
			c.Email,
			fmt.Sprintf("%d/%d", len(list), len(c.Questions)),
			graded,
			total,
			MaxAnswerScore * float64(len(c.Questions)),
			suitability,
			c.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, candidatesSheet, i+2, row); err != nil {
			return nil, errors.Wrap(err, "failed to write candidate row")
		}

		for _, a := range list {
			answerRow++
			question := ""
			if a.QuestionIndex < len(c.Questions) {
				question = c.Questions[a.QuestionIndex].Question
			}
			row := []interface{}{c.Name, c.Email, a.QuestionIndex + 1, question, string(a.Status), a.Score, a.Rationale}
			if err := writeRow(f, answersSheet, answerRow, row); err != nil {
				return nil, errors.Wrap(err, "failed to write answer row")
			}
		}
	}

	for _, sheet := range []string{candidatesSheet, answersSheet} {
		if err := f.SetColWidth(sheet, "A", "H", 25); err != nil {
			return nil, errors.Wrap(err, "failed to size columns")
		}
	}

	return f.WriteToBuffer()
}

func writeRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// CandidatePDF renders the candidate dossier: per-question verdicts and
// the aggregate report when one is stored.
func (e *exportService) CandidatePDF(outcome *GradingOutcome) (buf *bytes.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("CandidatePDF panic recover: %v", r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	candidate := outcome.Candidate
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(candidate.Name))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s  |  %s", candidate.Email, outcome.Interview.Role)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Score: %.1f / %.0f", outcome.TotalScore, outcome.MaxScore)))
	pdf.Ln(10)

	answers := make(map[int]models.Answer, len(outcome.Answers))
	for _, a := range outcome.Answers {
		answers[a.QuestionIndex] = a
	}

	for i, q := range candidate.Questions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q.Question)), "", "L", false)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Criteria: "+q.Criteria), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)

		a, ok := answers[i]
		switch {
		case !ok:
			pdf.MultiCell(0, 5, "Not answered", "", "L", false)
		case !a.IsGraded():
			pdf.MultiCell(0, 5, "Grading in progress", "", "L", false)
		default:
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("Score %.1f: %s", a.Score, a.Rationale)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if report := outcome.Report; report != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, tr("Suitability: "+string(report.Suitability)))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr("Strengths: "+strings.Join(report.Strengths, "; ")), "", "L", false)
		pdf.MultiCell(0, 5, tr("Weaknesses: "+strings.Join(report.Weaknesses, "; ")), "", "L", false)
		pdf.Ln(2)
		pdf.MultiCell(0, 5, tr(report.FinalComment), "", "L", false)
	}

	if pdf.Error() != nil {
		return nil, pdf.Error()
	}

	buf = new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
