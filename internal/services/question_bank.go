package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	log "github.com/sirupsen/logrus"

	"talentflow/interview-grader/internal/config"
	"talentflow/interview-grader/internal/models"
)

// QuestionBank remembers generated questions by role so later rooms for
// similar roles can avoid repeats.
type QuestionBank interface {
	InitCollection(ctx context.Context) error
	Index(ctx context.Context, interviewID uuid.UUID, role string, questions []models.QuestionSpec) error
	Similar(ctx context.Context, role string, limit int) []models.QuestionSpec
	DeleteInterview(ctx context.Context, interviewID uuid.UUID) error
}

type qdrantQuestionBank struct {
	client         *qdrant.Client
	gemini         GeminiService
	collectionName string
	vectorSize     uint64
}

// NewQuestionBank returns a no-op bank when no Qdrant URL is configured.
func NewQuestionBank(cfg config.QdrantConfig, gemini GeminiService) (QuestionBank, error) {
	if cfg.URL == "" {
		return NoopQuestionBank{}, nil
	}

	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantQuestionBank{
		client:         client,
		gemini:         gemini,
		collectionName: cfg.Collection,
		vectorSize:     768, // text-embedding-004 size
	}, nil
}

// InitCollection implements QuestionBank.
func (q *qdrantQuestionBank) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.WithField("collection", q.collectionName).Info("✅ Collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.WithField("collection", q.collectionName).Info("✅ Qdrant collection created successfully")
	return nil
}

// Index implements QuestionBank.
func (q *qdrantQuestionBank) Index(ctx context.Context, interviewID uuid.UUID, role string, questions []models.QuestionSpec) error {
	points := make([]*qdrant.PointStruct, 0, len(questions))
	for _, question := range questions {
		embedding, err := q.gemini.GenerateEmbedding(ctx, role+": "+question.Question)
		if err != nil {
			return fmt.Errorf("failed to embed question: %w", err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"interview_id": interviewID.String(),
				"role":         role,
				"question":     question.Question,
				"criteria":     question.Criteria,
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Similar implements QuestionBank.
func (q *qdrantQuestionBank) Similar(ctx context.Context, role string, limit int) []models.QuestionSpec {
	questions := []models.QuestionSpec{}

	embedding, err := q.gemini.GenerateEmbedding(ctx, role)
	if err != nil {
		log.WithField("role", role).WithError(err).Warn("⚠️ Failed to embed role for question bank lookup")
		return questions
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.WithField("role", role).WithError(err).Warn("⚠️ Question bank search failed")
		return questions
	}

	for _, point := range points {
		question := payloadString(point.Payload, "question")
		if question == "" {
			continue
		}
		questions = append(questions, models.QuestionSpec{
			Question: question,
			Criteria: payloadString(point.Payload, "criteria"),
		})
	}

	return questions
}

// DeleteInterview implements QuestionBank.
func (q *qdrantQuestionBank) DeleteInterview(ctx context.Context, interviewID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("interview_id", interviewID.String()),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete interview questions: %w", err)
	}

	return nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if value, ok := payload[key]; ok {
		if val, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
			return val.StringValue
		}
	}
	return ""
}

type NoopQuestionBank struct{}

func (NoopQuestionBank) InitCollection(context.Context) error { return nil }

func (NoopQuestionBank) Index(context.Context, uuid.UUID, string, []models.QuestionSpec) error {
	return nil
}

func (NoopQuestionBank) Similar(context.Context, string, int) []models.QuestionSpec {
	return []models.QuestionSpec{}
}

func (NoopQuestionBank) DeleteInterview(context.Context, uuid.UUID) error { return nil }
