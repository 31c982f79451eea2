package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
)

const (
	answerMIMEType        = "video/webm"
	mediaMissingRationale = "media missing"
	failedRationale       = "grading failed — requires manual review"
	mediaDeleteTimeout    = 15 * time.Second
)

var (
	ErrMediaNotReady         = errors.New("media still processing after poll budget")
	ErrMediaProcessingFailed = errors.New("remote media processing failed")
)

type Outcome string

const (
	OutcomeScored       Outcome = "scored"
	OutcomeMediaMissing Outcome = "media_missing"
	OutcomeFailed       Outcome = "failed"
)

type Verdict struct {
	Score     float64
	Rationale string
	Outcome   Outcome
}

// AnswerGrader scores one recorded answer. It always returns a verdict;
// failures become a zero score flagged for manual review.
type AnswerGrader interface {
	Grade(ctx context.Context, mediaKey string, question models.QuestionSpec) Verdict
}

type answerGrader struct {
	storage       StorageService
	media         MediaService
	promptBuilder *PromptBuilder
	pollInterval  time.Duration
	maxAttempts   int
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewAnswerGrader(storage StorageService, media MediaService, cfg config.GradingConfig) AnswerGrader {
	return &answerGrader{
		storage:       storage,
		media:         media,
		promptBuilder: NewPromptBuilder(),
		pollInterval:  cfg.PollInterval(),
		maxAttempts:   cfg.PollMaxAttempts,
		sleep:         sleepContext,
	}
}

// Grade implements AnswerGrader.
func (g *answerGrader) Grade(ctx context.Context, mediaKey string, question models.QuestionSpec) Verdict {
	logger := log.WithField("media_key", mediaKey)

	size, err := g.storage.Stat(ctx, mediaKey)
	if err != nil && !errors.Is(err, ErrBlobNotFound) {
		logger.WithError(err).Error("❌ Failed to stat answer media")
		return failedVerdict()
	}
	if size == 0 {
		logger.Warn("⚠️ Answer media missing or empty")
		return Verdict{Score: 0, Rationale: mediaMissingRationale, Outcome: OutcomeMediaMissing}
	}

	verdict, err := g.grade(ctx, mediaKey, question)
	if err != nil {
		if errors.Is(err, ErrMediaNotReady) {
			logger.WithError(err).Error("⏱️ Timed out waiting for media processing")
		} else {
			logger.WithError(err).Error("❌ Grading failed")
		}
		return failedVerdict()
	}

	logger.WithField("score", verdict.Score).Info("✅ Answer graded")
	return verdict
}

func (g *answerGrader) grade(ctx context.Context, mediaKey string, question models.QuestionSpec) (Verdict, error) {
	blob, err := g.storage.Open(ctx, mediaKey)
	if err != nil {
		return Verdict{}, err
	}
	defer blob.Close()

	handle, err := g.media.UploadMedia(ctx, blob, answerMIMEType, mediaKey)
	if err != nil {
		return Verdict{}, err
	}
	defer g.deleteMedia(ctx, handle.Name)

	handle, err = g.waitReady(ctx, handle)
	if err != nil {
		return Verdict{}, err
	}

	prompt := g.promptBuilder.BuildGradingPrompt(question)
	response, err := g.media.GenerateFromMedia(ctx, handle, prompt, gradingSchema())
	if err != nil {
		return Verdict{}, err
	}

	return decodeGrading(response)
}

// waitReady polls the uploaded file until it is usable. The poll budget is
// the only timeout on a grading attempt.
func (g *answerGrader) waitReady(ctx context.Context, handle *MediaHandle) (*MediaHandle, error) {
	for attempt := 0; handle.State == MediaProcessing && attempt < g.maxAttempts; attempt++ {
		if err := g.sleep(ctx, g.pollInterval); err != nil {
			return nil, err
		}

		next, err := g.media.GetMedia(ctx, handle.Name)
		if err != nil {
			return nil, err
		}
		handle = next
	}

	switch handle.State {
	case MediaReady:
		return handle, nil
	case MediaFailed:
		return nil, ErrMediaProcessingFailed
	default:
		return nil, ErrMediaNotReady
	}
}

func (g *answerGrader) deleteMedia(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mediaDeleteTimeout)
	defer cancel()

	if err := g.media.DeleteMedia(ctx, name); err != nil {
		log.WithField("media", name).WithError(err).Warn("⚠️ Failed to delete remote media")
	}
}

func decodeGrading(response string) (Verdict, error) {
	doc, err := decodeObject(response)
	if err != nil {
		return Verdict{}, err
	}

	if _, ok := doc["rationale"]; !ok {
		if summary, ok := doc["summary"]; ok {
			doc["rationale"] = summary
		}
	}

	if err := validateDocument(gradingValidator, doc); err != nil {
		return Verdict{}, err
	}

	return Verdict{
		Score:     doc["score"].(float64),
		Rationale: doc["rationale"].(string),
		Outcome:   OutcomeScored,
	}, nil
}

// decodeObject reads a JSON object from a response, recovering it from
// surrounding text when the response is not clean JSON.
func decodeObject(response string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(response), &doc); err == nil && doc != nil {
		return doc, nil
	}

	value, ok := ParseStructuredObject(response)
	if !ok || value.Kind != StructuredObject {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if err := value.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return doc, nil
}

func failedVerdict() Verdict {
	return Verdict{Score: 0, Rationale: failedRationale, Outcome: OutcomeFailed}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
