package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
	"talentflow/interview-grader/internal/repositories"
	"talentflow/interview-grader/internal/services"
)

const stubReport = `{"suitability": "Medium", "strengths": ["calm"], "weaknesses": ["short"], "final_comment": "Solid."}`

type stubGemini struct{}

func (stubGemini) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (stubGemini) GenerateText(context.Context, string, float32) (string, error) {
	return stubReport, nil
}

func (stubGemini) GenerateJSON(context.Context, string, *genai.Schema, float32) (string, error) {
	return stubReport, nil
}

func (stubGemini) GenerateJSONWithRetry(context.Context, string, *genai.Schema, float32, int) (string, error) {
	return stubReport, nil
}

type stubMedia struct{}

func (stubMedia) UploadMedia(_ context.Context, r io.Reader, mimeType, name string) (*services.MediaHandle, error) {
	_, _ = io.Copy(io.Discard, r)
	return &services.MediaHandle{Name: "files/" + name, MIMEType: mimeType, State: services.MediaReady}, nil
}

func (stubMedia) GetMedia(_ context.Context, name string) (*services.MediaHandle, error) {
	return &services.MediaHandle{Name: name, State: services.MediaReady}, nil
}

func (stubMedia) GenerateFromMedia(context.Context, *services.MediaHandle, string, *genai.Schema) (string, error) {
	return `{"score": 8, "rationale": "Clear and specific."}`, nil
}

func (stubMedia) DeleteMedia(context.Context, string) error { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	recruiterRepo := repositories.NewRecruiterRepository(db)
	interviewRepo := repositories.NewInterviewRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	answerRepo := repositories.NewAnswerRepository(db)

	storage := services.NewLocalStorage(t.TempDir())
	require.NoError(t, storage.Init(context.Background()))

	gradingCfg := config.GradingConfig{
		PollIntervalSeconds: 1,
		PollMaxAttempts:     3,
		ClaimLeaseSeconds:   300,
		WorkerConcurrency:   2,
		QueueSize:           10,
	}
	invalidate := true

	gemini := stubGemini{}
	bank := services.NoopQuestionBank{}
	interviewService := services.NewInterviewService(
		recruiterRepo, interviewRepo, candidateRepo, answerRepo,
		storage,
		services.NewTextExtractor(5000),
		services.NewQuestionSynthesizer(gemini, bank),
		bank,
		config.ReportConfig{InvalidateOnResubmit: &invalidate},
	)
	orchestrator := services.NewGradingOrchestrator(
		candidateRepo, interviewRepo, answerRepo,
		services.NewAnswerGrader(storage, stubMedia{}, gradingCfg),
		services.NewReportAggregator(gemini),
		gradingCfg,
	)
	exportService := services.NewExportService(interviewRepo, candidateRepo, answerRepo)

	worker := services.NewWorker(candidateRepo, orchestrator, gradingCfg)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	t.Cleanup(func() {
		worker.Stop()
		cancel()
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestLogger())
	RegisterRoutes(app, Handlers{
		Recruiter: NewRecruiterHandler(interviewService),
		Interview: NewInterviewHandler(interviewService, exportService),
		Candidate: NewCandidateHandler(interviewService, worker, 1<<20),
		Report:    NewReportHandler(orchestrator, worker, exportService, config.AppConfig{RequestTimeoutSeconds: 30}.RequestTimeout()),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return do(t, app, req)
}

func doForm(t *testing.T, app *fiber.App, path string, fields map[string]string, fileField, fileName string, file []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

// seedRoom creates a recruiter and a manual room and returns the room code.
func seedRoom(t *testing.T, app *fiber.App, questions ...string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/recruiters", models.CreateRecruiterRequest{
		Username: "recruiter",
		FullName: "Rita Recruiter",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var recruiter models.RecruiterResponse
	require.NoError(t, json.Unmarshal(body, &recruiter))

	specs := make([]models.QuestionSpec, 0, len(questions))
	for _, q := range questions {
		specs = append(specs, models.QuestionSpec{Question: q, Criteria: "Clarity"})
	}
	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/recruiters/%s/interviews", recruiter.ID), models.CreateInterviewRequest{
		Role:      "Backend Engineer",
		Mode:      services.ModeManual,
		Questions: specs,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var interview models.InterviewResponse
	require.NoError(t, json.Unmarshal(body, &interview))
	require.Len(t, interview.Questions, len(questions))
	return interview.Code
}

func register(t *testing.T, app *fiber.App, code, name string) (*http.Response, models.RegisterResponse) {
	t.Helper()
	resp, body := doForm(t, app, "/api/v1/candidates", map[string]string{
		"room_code": code,
		"name":      name,
		"email":     "ana@example.com",
	}, "", "", nil)
	var reg models.RegisterResponse
	if resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(body, &reg))
	}
	return resp, reg
}

func TestHandlers(t *testing.T) {
	t.Run(`health check`, func(t *testing.T) {
		app := newTestApp(t)
		resp, body := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "healthy")
	})

	t.Run(`interview flow from registration to report`, func(t *testing.T) {
		app := newTestApp(t)
		code := seedRoom(t, app, "Tell us about a project you led.")

		resp, body := doJSON(t, app, http.MethodGet, "/api/v1/interviews/"+strings.ToLower(code), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

		resp, reg := register(t, app, code, "Ana Lima")
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.False(t, reg.Returning)
		require.Len(t, reg.Questions, 1)

		resp, again := register(t, app, code, "Ana Lima")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.True(t, again.Returning)
		require.Equal(t, reg.CandidateID, again.CandidateID)

		video := []byte("webm-bytes")
		resp, body = doForm(t, app, fmt.Sprintf("/api/v1/candidates/%s/answers", reg.CandidateID),
			map[string]string{"question_index": "0"}, "video", "answer.webm", video)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
		var answer models.AnswerResponse
		require.NoError(t, json.Unmarshal(body, &answer))
		require.Equal(t, 1, answer.Revision)

		resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%s/report?wait=true", reg.CandidateID), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
		var report models.ReportResponse
		require.NoError(t, json.Unmarshal(body, &report))
		require.True(t, report.Complete)
		require.False(t, report.Grading)
		require.Equal(t, 8.0, report.TotalScore)
		require.Equal(t, 10.0, report.MaxScore)
		require.NotNil(t, report.Report)
		require.Equal(t, models.SuitabilityMedium, report.Report.Suitability)

		resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%s/answers/0/media", reg.CandidateID), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, video, body)

		resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%s/report.pdf", reg.CandidateID), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.True(t, bytes.HasPrefix(body, []byte("%PDF")))

		resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/interviews/%s/export.xlsx", code), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.True(t, bytes.HasPrefix(body, []byte("PK")))
	})

	t.Run(`service errors map to statuses`, func(t *testing.T) {
		app := newTestApp(t)
		code := seedRoom(t, app, "Q1")

		resp, body := doJSON(t, app, http.MethodGet, "/api/v1/interviews/ZZZZZ", nil)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		var payload struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, fiber.StatusNotFound, payload.Code)
		require.NotEmpty(t, payload.Error)

		resp, reg := register(t, app, code, "Ana Lima")
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		resp, _ = register(t, app, code, "Someone Else")
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)

		resp, _ = doForm(t, app, fmt.Sprintf("/api/v1/candidates/%s/answers", reg.CandidateID),
			map[string]string{"question_index": "5"}, "video", "answer.webm", []byte("x"))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/candidates/not-a-uuid/report", nil)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%s/answers/0/media", reg.CandidateID), nil)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run(`report without wait returns the snapshot`, func(t *testing.T) {
		app := newTestApp(t)
		code := seedRoom(t, app, "Q1", "Q2")
		_, reg := register(t, app, code, "Ana Lima")

		resp, body := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%s/report", reg.CandidateID), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
		var report models.ReportResponse
		require.NoError(t, json.Unmarshal(body, &report))
		require.False(t, report.Complete)
		require.Nil(t, report.Report)
		require.Equal(t, 20.0, report.MaxScore)
	})
}
