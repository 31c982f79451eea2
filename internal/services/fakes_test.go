package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/repositories"
)

type fakeGemini struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	calls   int
	prompts []string
}

func (f *fakeGemini) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (f *fakeGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	return f.call(prompt)
}

func (f *fakeGemini) GenerateJSON(_ context.Context, prompt string, _ *genai.Schema, _ float32) (string, error) {
	return f.call(prompt)
}

func (f *fakeGemini) GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error) {
	var (
		text string
		err  error
	)
	for attempt := 0; attempt < maxRetries; attempt++ {
		if text, err = f.GenerateJSON(ctx, prompt, schema, temperature); err == nil {
			return text, nil
		}
	}
	return "", err
}

func (f *fakeGemini) call(prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	respond := f.respond
	f.mu.Unlock()
	return respond(prompt)
}

func (f *fakeGemini) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMedia struct {
	mu          sync.Mutex
	uploadErr   error
	initial     MediaState
	states      []MediaState
	response    string
	generateErr error
	uploadDelay time.Duration

	uploads   int
	gets      int
	generates int
	deletes   int
	uploaded  [][]byte
}

func (f *fakeMedia) UploadMedia(_ context.Context, r io.Reader, mimeType, _ string) (*MediaHandle, error) {
	data, _ := io.ReadAll(r)
	if f.uploadDelay > 0 {
		time.Sleep(f.uploadDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, data)
	return &MediaHandle{Name: "files/abc", URI: "https://files/abc", MIMEType: mimeType, State: f.initial}, nil
}

func (f *fakeMedia) GetMedia(_ context.Context, name string) (*MediaHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := MediaProcessing
	if f.gets < len(f.states) {
		state = f.states[f.gets]
	} else if len(f.states) > 0 {
		state = f.states[len(f.states)-1]
	}
	f.gets++
	return &MediaHandle{Name: name, URI: "https://files/abc", MIMEType: answerMIMEType, State: state}, nil
}

func (f *fakeMedia) GenerateFromMedia(context.Context, *MediaHandle, string, *genai.Schema) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates++
	return f.response, f.generateErr
}

func (f *fakeMedia) DeleteMedia(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

// RemoteCalls counts every call that would reach the remote file API.
func (f *fakeMedia) RemoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads + f.gets + f.generates + f.deletes
}

func (f *fakeMedia) Uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func noSleep(context.Context, time.Duration) error { return nil }

func testGradingConfig() config.GradingConfig {
	return config.GradingConfig{
		PollIntervalSeconds:   2,
		PollMaxAttempts:       10,
		ClaimLeaseSeconds:     300,
		WorkerConcurrency:     2,
		QueueSize:             10,
		PollerIntervalSeconds: 0,
	}
}

func newTestGrader(storage StorageService, media MediaService) *answerGrader {
	g := NewAnswerGrader(storage, media, testGradingConfig()).(*answerGrader)
	g.sleep = noSleep
	return g
}

type testRepos struct {
	recruiters repositories.RecruiterRepository
	interviews repositories.InterviewRepository
	candidates repositories.CandidateRepository
	answers    repositories.AnswerRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return &testRepos{
		recruiters: repositories.NewRecruiterRepository(db),
		interviews: repositories.NewInterviewRepository(db),
		candidates: repositories.NewCandidateRepository(db),
		answers:    repositories.NewAnswerRepository(db),
	}
}

func boolPtr(b bool) *bool { return &b }

// pipeline wires the grading services over an in-memory store, a temp
// upload dir and fake remote services.
type pipeline struct {
	repos        *testRepos
	storage      StorageService
	gemini       *fakeGemini
	media        *fakeMedia
	interviews   InterviewService
	orchestrator GradingOrchestrator
}

const reportJSON = `{"suitability": "High", "strengths": ["clear", "structured"], "weaknesses": ["brief"], "final_comment": "Strong candidate."}`

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	ctx := context.Background()
	repos := newTestRepos(t)
	storage := NewLocalStorage(t.TempDir())
	require.NoError(t, storage.Init(ctx))

	gemini := &fakeGemini{respond: func(string) (string, error) { return reportJSON, nil }}
	media := &fakeMedia{
		initial:  MediaProcessing,
		states:   []MediaState{MediaReady},
		response: `{"score": 7, "rationale": "clear answer"}`,
	}

	bank := NoopQuestionBank{}
	interviews := NewInterviewService(
		repos.recruiters, repos.interviews, repos.candidates, repos.answers,
		storage, NewTextExtractor(5000), NewQuestionSynthesizer(gemini, bank), bank,
		config.ReportConfig{InvalidateOnResubmit: boolPtr(true)},
	)

	return &pipeline{
		repos:        repos,
		storage:      storage,
		gemini:       gemini,
		media:        media,
		interviews:   interviews,
		orchestrator: newTestOrchestrator(repos, storage, media, gemini),
	}
}

func newTestOrchestrator(repos *testRepos, storage StorageService, media MediaService, gemini GeminiService) GradingOrchestrator {
	return NewGradingOrchestrator(
		repos.candidates, repos.interviews, repos.answers,
		newTestGrader(storage, media), NewReportAggregator(gemini),
		testGradingConfig(),
	)
}

// seed creates a manual room with questions and registers one candidate.
func (p *pipeline) seed(t *testing.T, questions ...models.QuestionSpec) *models.Candidate {
	t.Helper()
	ctx := context.Background()

	recruiter, err := p.interviews.CreateRecruiter("rec-"+uuid.NewString()[:8], "Recruiter")
	require.NoError(t, err)

	interview, err := p.interviews.CreateInterview(ctx, CreateInterviewInput{
		RecruiterID: recruiter.ID,
		Role:        "Backend Engineer",
		Mode:        ModeManual,
		Questions:   questions,
	})
	require.NoError(t, err)

	reg, err := p.interviews.RegisterCandidate(ctx, RegisterInput{
		RoomCode: interview.Code,
		Name:     "Ana Lima",
		Email:    "ana@example.com",
	})
	require.NoError(t, err)
	return reg.Candidate
}
