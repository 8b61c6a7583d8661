package llm

import (
	"context"
	"fmt"
	"strings"

	"nutrilens/internal/config"
	"nutrilens/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient talks to the Google Gemini API. It serves both meal photo
// analysis and plain text generation.
type GeminiClient struct {
	client      *genai.Client
	vision      *genai.GenerativeModel
	text        *genai.GenerativeModel
	visionModel string
	textModel   string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		vision:      client.GenerativeModel(cfg.GeminiVisionModel),
		text:        client.GenerativeModel(cfg.GeminiTextModel),
		visionModel: cfg.GeminiVisionModel,
		textModel:   cfg.GeminiTextModel,
	}, nil
}

// GenerateContent sends a prompt to the text model and returns the generated text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.text.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}
	return toContentResponse(resp, c.textModel)
}

// AnalyzeImage sends the prompt and the image to the vision model.
func (c *GeminiClient) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (ContentResponse, error) {
	// genai wants the bare format, e.g. "jpeg".
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if format == "" || format == "jpg" {
		format = "jpeg"
	}

	resp, err := c.vision.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to analyze image: %w", err)
	}
	return toContentResponse(resp, c.visionModel)
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func toContentResponse(resp *genai.GenerateContentResponse, model string) (ContentResponse, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: model}
	if md := resp.UsageMetadata; md != nil {
		usage.PromptTokens = int(md.PromptTokenCount)
		usage.CompletionTokens = int(md.CandidatesTokenCount)
		usage.TotalTokens = int(md.TotalTokenCount)
	}
	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}
