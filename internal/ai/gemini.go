// Package ai wraps the generative model provider behind two narrow
// capabilities: single-shot text generation and single-shot image
// generation. Pipeline stages depend on these interfaces, never on the
// provider SDK.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"email-assistant/internal/common/config"
	"email-assistant/internal/common/logger"
)

// TextGenerator is a single-shot text generation capability.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator is a single-shot image generation capability. The returned
// string is an opaque image reference suitable for an <img> src attribute.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements TextGenerator and ImageGenerator on top of the
// Google GenAI SDK (Gemini for text, Imagen for images).
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	logger     logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.AIConfig, log logger.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = "gemini-2.0-flash"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "imagen-3.0-generate-002"
	}

	return &GeminiClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
		logger: log.WithFields(map[string]interface{}{
			"component": "gemini",
		}),
	}, nil
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini text generation failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return "", fmt.Errorf("imagen generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", errors.New("imagen returned no image")
	}

	encoded := base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes)
	return "data:image/png;base64," + encoded, nil
}
