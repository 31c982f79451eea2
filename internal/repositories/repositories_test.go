package repositories

import (
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"talentflow/interview-grader/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Recruiter{},
		&models.Interview{},
		&models.Candidate{},
		&models.Answer{},
	))
	return db
}

type fixture struct {
	recruiters RecruiterRepository
	interviews InterviewRepository
	candidates CandidateRepository
	answers    AnswerRepository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		recruiters: NewRecruiterRepository(db),
		interviews: NewInterviewRepository(db),
		candidates: NewCandidateRepository(db),
		answers:    NewAnswerRepository(db),
	}
}

func (f *fixture) seedCandidate(t *testing.T, code string) (*models.Recruiter, *models.Interview, *models.Candidate) {
	t.Helper()
	recruiter := &models.Recruiter{Username: "rec-" + code, FullName: "Recruiter"}
	require.NoError(t, f.recruiters.Create(recruiter))

	questions := []models.QuestionSpec{
		{Question: "Q1", Criteria: "C1"},
		{Question: "Q2", Criteria: "C2"},
	}
	interview := &models.Interview{Code: code, RecruiterID: recruiter.ID, Role: "Backend", Questions: questions}
	require.NoError(t, f.interviews.Create(interview))

	candidate := &models.Candidate{InterviewID: interview.ID, Name: "Ana", Email: "ana@x.io", Questions: questions}
	require.NoError(t, f.candidates.Create(candidate))
	return recruiter, interview, candidate
}

func TestInterviewRepository(t *testing.T) {
	f := newFixture(t)
	_, interview, _ := f.seedCandidate(t, "AB12")

	t.Run(`find by code is case insensitive on input`, func(t *testing.T) {
		found, err := f.interviews.FindByCode(" ab12 ")
		require.NoError(t, err)
		require.Equal(t, interview.ID, found.ID)
		require.Len(t, found.Questions, 2)
		require.Equal(t, "C2", found.Questions[1].Criteria)
	})

	t.Run(`unknown code`, func(t *testing.T) {
		_, err := f.interviews.FindByCode("ZZZZ")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run(`code exists`, func(t *testing.T) {
		exists, err := f.interviews.CodeExists("AB12")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run(`duplicate code rejected`, func(t *testing.T) {
		dup := &models.Interview{Code: "AB12", RecruiterID: interview.RecruiterID, Role: "x", Questions: interview.Questions}
		require.Error(t, f.interviews.Create(dup))
	})
}

func TestAnswerRepository(t *testing.T) {
	f := newFixture(t)
	_, _, candidate := f.seedCandidate(t, "QW34")

	t.Run(`submission and resubmission`, func(t *testing.T) {
		first, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
		require.NoError(t, err)
		require.Equal(t, models.AnswerUngraded, first.Status)
		require.Equal(t, 1, first.Revision)

		second, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, 2, second.Revision)

		count, err := f.answers.CountByCandidate(candidate.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	})

	t.Run(`claim then complete`, func(t *testing.T) {
		answer, err := f.answers.UpsertSubmission(candidate.ID, 1, "c/q1.webm")
		require.NoError(t, err)

		token := uuid.New()
		ok, err := f.answers.ClaimForGrading(answer, token, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		again, err := f.answers.FindByCandidateAndIndex(candidate.ID, 1)
		require.NoError(t, err)
		ok, err = f.answers.ClaimForGrading(again, uuid.New(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.False(t, ok, "active claim must not be taken twice")

		ok, err = f.answers.CompleteGrading(answer.ID, token, GradeResult{Status: models.AnswerGraded, Score: 7, Rationale: "clear"})
		require.NoError(t, err)
		require.True(t, ok)

		graded, err := f.answers.FindByCandidateAndIndex(candidate.ID, 1)
		require.NoError(t, err)
		require.True(t, graded.IsGraded())
		require.Equal(t, 7.0, graded.Score)
		require.Nil(t, graded.ClaimToken)
	})

	t.Run(`resubmission during grading drops the stale verdict`, func(t *testing.T) {
		answer, err := f.answers.FindByCandidateAndIndex(candidate.ID, 0)
		require.NoError(t, err)

		token := uuid.New()
		ok, err := f.answers.ClaimForGrading(answer, token, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		_, err = f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
		require.NoError(t, err)

		ok, err = f.answers.CompleteGrading(answer.ID, token, GradeResult{Status: models.AnswerGraded, Score: 9})
		require.NoError(t, err)
		require.False(t, ok)

		current, err := f.answers.FindByCandidateAndIndex(candidate.ID, 0)
		require.NoError(t, err)
		require.Equal(t, models.AnswerUngraded, current.Status)
	})

	t.Run(`stale revision cannot be claimed`, func(t *testing.T) {
		answer, err := f.answers.FindByCandidateAndIndex(candidate.ID, 0)
		require.NoError(t, err)
		_, err = f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
		require.NoError(t, err)

		ok, err := f.answers.ClaimForGrading(answer, uuid.New(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run(`list in index order`, func(t *testing.T) {
		answers, err := f.answers.ListByCandidate(candidate.ID)
		require.NoError(t, err)
		require.Len(t, answers, 2)
		require.Equal(t, 0, answers[0].QuestionIndex)
		require.Equal(t, 1, answers[1].QuestionIndex)
	})
}

func TestConcurrentClaim(t *testing.T) {
	f := newFixture(t)
	_, _, candidate := f.seedCandidate(t, "CC99")
	answer, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot := *answer
			ok, err := f.answers.ClaimForGrading(&snapshot, uuid.New(), time.Now().Add(-time.Minute))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, won)
}

func TestCandidateRepository(t *testing.T) {
	f := newFixture(t)
	_, interview, candidate := f.seedCandidate(t, "RP01")

	t.Run(`find by interview and email`, func(t *testing.T) {
		found, err := f.candidates.FindByInterviewAndEmail(interview.ID, "ana@x.io")
		require.NoError(t, err)
		require.Equal(t, candidate.ID, found.ID)

		_, err = f.candidates.FindByInterviewAndEmail(interview.ID, "bob@x.io")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run(`report is write once`, func(t *testing.T) {
		first := &models.AggregateReport{Suitability: models.SuitabilityHigh, FinalComment: "first"}
		ok, err := f.candidates.SaveReportIfAbsent(candidate.ID, first, 0)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.candidates.SaveReportIfAbsent(candidate.ID, &models.AggregateReport{Suitability: models.SuitabilityLow}, 0)
		require.NoError(t, err)
		require.False(t, ok)

		stored, err := f.candidates.FindByID(candidate.ID)
		require.NoError(t, err)
		require.Equal(t, "first", stored.Report().FinalComment)

		require.NoError(t, f.candidates.ClearReport(candidate.ID))
		cleared, err := f.candidates.FindByID(candidate.ID)
		require.NoError(t, err)
		require.Nil(t, cleared.Report())
	})

	t.Run(`needing grading`, func(t *testing.T) {
		_, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
		require.NoError(t, err)

		ids, err := f.candidates.FindNeedingGrading(10, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{candidate.ID}, ids)
	})
}

func TestReportGuard(t *testing.T) {
	f := newFixture(t)
	_, _, candidate := f.seedCandidate(t, "RG01")
	report := &models.AggregateReport{Suitability: models.SuitabilityMedium, FinalComment: "built"}

	answer, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
	require.NoError(t, err)

	t.Run(`not stored while an answer is ungraded`, func(t *testing.T) {
		ok, err := f.candidates.SaveReportIfAbsent(candidate.ID, report, answer.Revision)
		require.NoError(t, err)
		require.False(t, ok)
	})

	token := uuid.New()
	claimed, err := f.answers.ClaimForGrading(answer, token, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)
	completed, err := f.answers.CompleteGrading(answer.ID, token, GradeResult{Status: models.AnswerGraded, Score: 7, Rationale: "ok"})
	require.NoError(t, err)
	require.True(t, completed)

	t.Run(`not stored when answers changed since the report was built`, func(t *testing.T) {
		ok, err := f.candidates.SaveReportIfAbsent(candidate.ID, report, answer.Revision+1)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run(`stored when every answer is graded at the expected revision`, func(t *testing.T) {
		ok, err := f.candidates.SaveReportIfAbsent(candidate.ID, report, answer.Revision)
		require.NoError(t, err)
		require.True(t, ok)

		stored, err := f.candidates.FindByID(candidate.ID)
		require.NoError(t, err)
		require.Equal(t, "built", stored.Report().FinalComment)
	})
}

func TestRecruiterCascadeDelete(t *testing.T) {
	f := newFixture(t)
	recruiter, interview, candidate := f.seedCandidate(t, "DL55")
	_, err := f.answers.UpsertSubmission(candidate.ID, 0, "c/q0.webm")
	require.NoError(t, err)

	deleted, err := f.recruiters.Delete(recruiter.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{interview.ID}, deleted.InterviewIDs)
	require.Equal(t, []uuid.UUID{candidate.ID}, deleted.CandidateIDs)

	_, err = f.interviews.FindByID(interview.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.candidates.FindByID(candidate.ID)
	require.ErrorIs(t, err, ErrNotFound)
	count, err := f.answers.CountByCandidate(candidate.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = f.recruiters.Delete(recruiter.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
