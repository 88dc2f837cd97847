// internal/stages/contentgen/handler_test.go
package contentgen

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-assistant/internal/ai"
	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeTextGenerator struct {
	response string
	err      error
	delay    time.Duration

	prompts []string
}

func (f *fakeTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeImageGenerator records every prompt and either fails uniformly or
// returns a deterministic reference.
type fakeImageGenerator struct {
	err     error
	calls   int
	prompts []string
}

func (f *fakeImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return "data:image/png;base64,Zm9v", nil
}

func createTestContact() models.ContactRecord {
	return models.ContactRecord{
		"first_name": "Priya",
		"last_name":  "Sharma",
		"email":      "priya.sharma@example.com",
		"job_title":  "VP Engineering",
		"company":    "Northwind Labs",
		"industry":   "SaaS",
	}
}

func completeContent() map[string]string {
	return map[string]string{
		"subject":         "Priya, welcome aboard",
		"preheader":       "Your onboarding starts here",
		"headline":        "Welcome to Streamline Pro, Priya",
		"subheadline":     "Built for engineering leaders at Northwind Labs",
		"welcome_message": "Hi Priya, as VP Engineering at Northwind Labs you know how much tooling matters.",
		"company_name":    "Streamline Pro",
		"feature1_title":  "Instant pipelines",
		"feature1_text":   "Ship faster with zero-config pipelines.",
		"feature2_title":  "Team insights",
		"feature2_text":   "See where your team spends its time.",
		"highlight_title": "Launch offer",
		"highlight_text":  "Three months free for new teams.",
		"cta_headline":    "Ready to start?",
		"cta_text":        "Get Started",
	}
}

func contentJSON(t *testing.T, content map[string]string) string {
	data, err := json.Marshal(content)
	require.NoError(t, err)
	return string(data)
}

func createTestHandler(t *testing.T, text *fakeTextGenerator, images ai.ImageGenerator) *Handler {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return NewHandler(cfg, text, images, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	text := &fakeTextGenerator{response: contentJSON(t, completeContent())}
	images := &fakeImageGenerator{}
	handler := createTestHandler(t, text, images)

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign for new users",
	})

	require.NoError(t, err)
	for _, field := range RequiredFields {
		assert.NotEmpty(t, output.Content[field], field)
	}
	for _, key := range ImageKeys {
		assert.Equal(t, "data:image/png;base64,Zm9v", output.Content[key], key)
	}
	assert.Equal(t, len(ImageKeys), images.calls)
}

func TestHandler_Execute_CodeFencedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "json fence",
			response: "```json\n" + contentJSON(t, completeContent()) + "\n```",
		},
		{
			name:     "bare fence",
			response: "```\n" + contentJSON(t, completeContent()) + "\n```",
		},
		{
			name:     "fence with surrounding whitespace",
			response: "\n\n```json\n" + contentJSON(t, completeContent()) + "\n```\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &fakeTextGenerator{response: tt.response}
			handler := createTestHandler(t, text, &fakeImageGenerator{})

			output, err := handler.Execute(context.Background(), &Input{
				Contact:         createTestContact(),
				CampaignPurpose: "Welcome campaign",
			})

			require.NoError(t, err)
			assert.Equal(t, "Streamline Pro", output.Content["company_name"])
		})
	}
}

func TestHandler_Execute_GeneratorError(t *testing.T) {
	text := &fakeTextGenerator{err: stderrors.New("model unavailable")}
	handler := createTestHandler(t, text, &fakeImageGenerator{})

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
	})

	assert.Nil(t, output)
	pe, ok := errors.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeContentGenerationFailed, pe.Code)
	assert.Contains(t, pe.Details, "model unavailable")
}

func TestHandler_Execute_UnparseableResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I could not produce content, sorry."},
		{"truncated json", `{"subject": "Hi"`},
		{"non-string values", `{"subject": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &fakeTextGenerator{response: tt.response}
			images := &fakeImageGenerator{}
			handler := createTestHandler(t, text, images)

			output, err := handler.Execute(context.Background(), &Input{
				Contact:         createTestContact(),
				CampaignPurpose: "Welcome campaign",
			})

			assert.Nil(t, output)
			assert.True(t, errors.IsCode(err, errors.ErrCodeContentGenerationFailed))
			assert.Zero(t, images.calls, "images must not be generated for invalid content")
		})
	}
}

func TestHandler_Execute_MissingRequiredFields(t *testing.T) {
	content := completeContent()
	delete(content, "preheader")
	delete(content, "cta_text")
	text := &fakeTextGenerator{response: contentJSON(t, content)}
	images := &fakeImageGenerator{}
	handler := createTestHandler(t, text, images)

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
	})

	assert.Nil(t, output)
	pe, ok := errors.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeContentGenerationFailed, pe.Code)
	// every missing field is named, not just the first
	assert.Contains(t, pe.Details, "preheader")
	assert.Contains(t, pe.Details, "cta_text")
	assert.Zero(t, images.calls)
}

func TestHandler_Execute_ImageFailureDegradesToPlaceholder(t *testing.T) {
	text := &fakeTextGenerator{response: contentJSON(t, completeContent())}
	images := &fakeImageGenerator{err: stderrors.New("imagen quota exceeded")}
	handler := createTestHandler(t, text, images)

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
	})

	require.NoError(t, err, "image failures are absorbed, never surfaced")
	for _, key := range ImageKeys {
		assert.Equal(t, PlaceholderImage, output.Content[key], key)
	}
	assert.Equal(t, len(ImageKeys), images.calls, "one attempt per image slot")
}

func TestHandler_Execute_NoImageGenerator(t *testing.T) {
	text := &fakeTextGenerator{response: contentJSON(t, completeContent())}
	handler := createTestHandler(t, text, nil)

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
	})

	require.NoError(t, err)
	for _, key := range ImageKeys {
		assert.Equal(t, PlaceholderImage, output.Content[key], key)
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	text := &fakeTextGenerator{response: "{}", delay: 200 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	handler := NewHandler(cfg, text, &fakeImageGenerator{}, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
	})

	assert.Nil(t, output)
	pe, ok := errors.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeContentGenerationFailed, pe.Code)
	assert.Contains(t, pe.Details, "timed out")
	assert.True(t, pe.Retryable)
}

func TestHandler_Execute_StatusReporting(t *testing.T) {
	text := &fakeTextGenerator{response: contentJSON(t, completeContent())}
	handler := createTestHandler(t, text, &fakeImageGenerator{})

	var progresses []float64
	_, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Welcome campaign",
		OnStatus: func(message string, progress float64) {
			progresses = append(progresses, progress)
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, progresses)
	last := 0.0
	for _, p := range progresses {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 1.0, progresses[len(progresses)-1])
}

func TestHandler_Execute_PromptContents(t *testing.T) {
	text := &fakeTextGenerator{response: contentJSON(t, completeContent())}
	images := &fakeImageGenerator{}
	handler := createTestHandler(t, text, images)

	_, err := handler.Execute(context.Background(), &Input{
		Contact:         createTestContact(),
		CampaignPurpose: "Product launch for our analytics suite",
	})
	require.NoError(t, err)

	require.Len(t, text.prompts, 1)
	assert.Contains(t, text.prompts[0], "Priya")
	assert.Contains(t, text.prompts[0], "VP Engineering")
	assert.Contains(t, text.prompts[0], "Northwind Labs")
	assert.Contains(t, text.prompts[0], "Product launch for our analytics suite")

	// image prompts interpolate the generated fields, not the contact
	require.Len(t, images.prompts, len(ImageKeys))
	assert.Contains(t, images.prompts[0], "Welcome to Streamline Pro, Priya")
	assert.Contains(t, images.prompts[1], "Instant pipelines")
	assert.Contains(t, images.prompts[2], "Team insights")
	assert.Contains(t, images.prompts[3], "Launch offer")
}

// ==========================
// Unit Tests
// ==========================

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", `{"a":"b"}`, `{"a":"b"}`},
		{"json fence", "```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"bare fence", "```\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"leading whitespace", "  \n```json\n{\"a\":\"b\"}\n```  ", `{"a":"b"}`},
		{"single line fences", "```{\"a\":\"b\"}```", `{"a":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFence(tt.input))
		})
	}
}

func TestMissingFields_Order(t *testing.T) {
	content := models.ContentMap{}
	missing := missingFields(content)
	assert.Equal(t, RequiredFields, missing)

	full := models.ContentMap{}
	for _, f := range RequiredFields {
		full[f] = "x"
	}
	assert.Empty(t, missingFields(full))

	full["subject"] = "   "
	assert.Equal(t, []string{"subject"}, missingFields(full), "blank values count as missing")
}
