// internal/stages/contentgen/handler.go
package contentgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"email-assistant/internal/ai"
	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
	"email-assistant/internal/pipeline"
)

const StageName = "content-generation"

type Handler struct {
	config *Config
	text   ai.TextGenerator
	images ai.ImageGenerator
	logger logger.Logger
}

func NewHandler(config *Config, text ai.TextGenerator, images ai.ImageGenerator, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Handler{
		config: config,
		text:   text,
		images: images,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// GenerateContent implements pipeline.ContentGenerator.
func (h *Handler) GenerateContent(ctx context.Context, contact models.ContactRecord, campaignPurpose string, report pipeline.StatusFunc) (models.ContentMap, error) {
	output, err := h.Execute(ctx, &Input{
		Contact:         contact,
		CampaignPurpose: campaignPurpose,
		OnStatus:        report,
	})
	if err != nil {
		return nil, err
	}
	return output.Content, nil
}

// Execute generates the text fields, validates them, then fills the image
// slots. Text failures fail the stage; image failures degrade to the
// placeholder reference.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	notify(input.OnStatus, "Analyzing contact data", 0.2)

	raw, err := h.text.GenerateText(ctx, buildContentPrompt(input.Contact, input.CampaignPurpose))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewContentGenerationTimeoutError(h.config.Timeout)
		}
		return nil, errors.NewContentGenerationFailedError(err.Error())
	}

	notify(input.OnStatus, "Generating content", 0.5)

	content, err := parseContent(raw)
	if err != nil {
		return nil, errors.NewContentGenerationFailedError(err.Error())
	}
	if missing := missingFields(content); len(missing) > 0 {
		return nil, errors.NewContentGenerationFailedError(
			fmt.Sprintf("missing required content fields: %s", strings.Join(missing, ", ")))
	}

	notify(input.OnStatus, "Generating images", 0.8)

	for _, key := range ImageKeys {
		content[key] = h.generateImage(ctx, key, content)
	}

	notify(input.OnStatus, "Content ready", 1.0)
	return &Output{Content: content}, nil
}

// generateImage never fails: any error resolves to the placeholder
// reference so a missing decorative image cannot block the email.
func (h *Handler) generateImage(ctx context.Context, key string, content models.ContentMap) string {
	if h.images == nil {
		return PlaceholderImage
	}
	ref, err := h.images.GenerateImage(ctx, buildImagePrompt(key, content))
	if err != nil || ref == "" {
		h.logger.Warn("image generation degraded to placeholder", map[string]interface{}{
			"imageKey": key,
			"error":    fmt.Sprint(err),
		})
		return PlaceholderImage
	}
	return ref
}

// parseContent strips any code-fence noise and decodes the text into a flat
// string-keyed record.
func parseContent(raw string) (models.ContentMap, error) {
	cleaned := stripCodeFence(raw)

	var content models.ContentMap
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return nil, fmt.Errorf("unparseable model response: %w", err)
	}
	return content, nil
}

// missingFields returns every required field absent or blank in content, in
// declaration order.
func missingFields(content models.ContentMap) []string {
	var missing []string
	for _, field := range RequiredFields {
		if strings.TrimSpace(content[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func notify(fn func(string, float64), message string, progress float64) {
	if fn != nil {
		fn(message, progress)
	}
}
