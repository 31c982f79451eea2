package services

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"talentflow/interview-grader/internal/config"
)

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error)
	GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error)
}

// MediaService wraps the remote file API used for video grading.
type MediaService interface {
	UploadMedia(ctx context.Context, r io.Reader, mimeType, displayName string) (*MediaHandle, error)
	GetMedia(ctx context.Context, name string) (*MediaHandle, error)
	GenerateFromMedia(ctx context.Context, media *MediaHandle, prompt string, schema *genai.Schema) (string, error)
	DeleteMedia(ctx context.Context, name string) error
}

type MediaState string

const (
	MediaProcessing MediaState = "processing"
	MediaReady      MediaState = "ready"
	MediaFailed     MediaState = "failed"
)

type MediaHandle struct {
	Name     string
	URI      string
	MIMEType string
	State    MediaState
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
}

// NewGenAIClient builds the shared client for either the Gemini API or
// Vertex AI backend.
func NewGenAIClient(ctx context.Context, cfg config.GeminiConfig) (*genai.Client, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Backend == "vertex" {
		clientConfig = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiService(client *genai.Client, cfg config.GeminiConfig) GeminiService {
	return newGeminiService(client, cfg)
}

func NewMediaService(client *genai.Client, cfg config.GeminiConfig) MediaService {
	return newGeminiService(client, cfg)
}

func newGeminiService(client *genai.Client, cfg config.GeminiConfig) *geminiService {
	return &geminiService{
		client:     client,
		modelName:  cfg.TextModel,
		embedModel: cfg.EmbedModel,
	}
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g.generate(ctx, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	})
}

// GenerateJSON implements GeminiService.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	return g.generate(ctx, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
}

// GenerateJSONWithRetry implements GeminiService.
func (g *geminiService) GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := g.GenerateJSON(ctx, prompt, schema, temperature)
		if err == nil {
			return result, nil
		}

		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < maxRetries {
			log.WithField("attempt", attempt).WithError(err).Warn("⚠️ Gemini request failed, retrying")
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// UploadMedia implements MediaService.
func (g *geminiService) UploadMedia(ctx context.Context, r io.Reader, mimeType, displayName string) (*MediaHandle, error) {
	file, err := g.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	return toMediaHandle(file, mimeType), nil
}

// GetMedia implements MediaService.
func (g *geminiService) GetMedia(ctx context.Context, name string) (*MediaHandle, error) {
	file, err := g.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get media %s: %w", name, err)
	}
	return toMediaHandle(file, ""), nil
}

// GenerateFromMedia implements MediaService.
func (g *geminiService) GenerateFromMedia(ctx context.Context, media *MediaHandle, prompt string, schema *genai.Schema) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromURI(media.URI, media.MIMEType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temperature := float32(0.2)
	return g.generate(ctx, contents, &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
}

// DeleteMedia implements MediaService.
func (g *geminiService) DeleteMedia(ctx context.Context, name string) error {
	if _, err := g.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("failed to delete media %s: %w", name, err)
	}
	return nil
}

func (g *geminiService) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		log.WithError(err).Error("❌ Gemini API error")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	log.WithField("latency", time.Since(started).String()).Debug("📊 Gemini response received")

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}

func toMediaHandle(file *genai.File, mimeType string) *MediaHandle {
	handle := &MediaHandle{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
		State:    MediaProcessing,
	}
	if handle.MIMEType == "" {
		handle.MIMEType = mimeType
	}

	switch file.State {
	case genai.FileStateActive:
		handle.State = MediaReady
	case genai.FileStateFailed:
		handle.State = MediaFailed
	}
	return handle
}
