// internal/stages/htmlcompile/handler_test.go
package htmlcompile

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

type fakeRenderer struct {
	html string
	err  error

	gotTemplate string
	gotContent  models.ContentMap
}

func (f *fakeRenderer) Render(templateID string, content models.ContentMap) (string, error) {
	f.gotTemplate = templateID
	f.gotContent = content
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func createTestHandler(t *testing.T, renderer Renderer) *Handler {
	return NewHandler(DefaultConfig(), renderer, logger.NewTestLogger(t))
}

func TestHandler_Execute_Success(t *testing.T) {
	renderer := &fakeRenderer{html: "<!DOCTYPE html>\n<html><body>Hello</body></html>"}
	handler := createTestHandler(t, renderer)

	content := models.ContentMap{"subject": "Hi", "HERO_IMAGE": "data:image/png;base64,Zm9v"}
	output, err := handler.Execute(context.Background(), &Input{
		TemplateID: "welcome/welcome_email.html",
		Content:    content,
	})

	require.NoError(t, err)
	assert.Equal(t, renderer.html, output.HTML)
	assert.Equal(t, "welcome/welcome_email.html", renderer.gotTemplate)
	assert.Equal(t, content, renderer.gotContent)
}

func TestHandler_Execute_SurroundingWhitespaceTolerated(t *testing.T) {
	renderer := &fakeRenderer{html: "\n\n  <html><body>ok</body></html>  \n"}
	handler := createTestHandler(t, renderer)

	output, err := handler.Execute(context.Background(), &Input{
		TemplateID: "welcome/welcome_email.html",
		Content:    models.ContentMap{},
	})

	require.NoError(t, err)
	// raw output is preserved, only the check trims
	assert.Equal(t, renderer.html, output.HTML)
}

func TestHandler_Execute_Failures(t *testing.T) {
	tests := []struct {
		name     string
		renderer *fakeRenderer
		details  string
	}{
		{
			name:     "renderer error",
			renderer: &fakeRenderer{err: stderrors.New("template not found: bogus.html")},
			details:  "template not found",
		},
		{
			name:     "empty output",
			renderer: &fakeRenderer{html: "   \n\t "},
			details:  "empty output",
		},
		{
			name:     "output does not start with angle bracket",
			renderer: &fakeRenderer{html: "Hello <b>world</b>"},
			details:  "not an HTML document",
		},
		{
			name:     "output does not end with angle bracket",
			renderer: &fakeRenderer{html: "<html>trailing text"},
			details:  "not an HTML document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, tt.renderer)

			output, err := handler.Execute(context.Background(), &Input{
				TemplateID: "welcome/welcome_email.html",
				Content:    models.ContentMap{},
			})

			assert.Nil(t, output)
			pe, ok := errors.AsPipelineError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeCompilationFailed, pe.Code)
			assert.Contains(t, pe.Details, tt.details)
		})
	}
}

func TestHandler_Execute_StatusReporting(t *testing.T) {
	renderer := &fakeRenderer{html: "<html></html>"}
	handler := createTestHandler(t, renderer)

	var progresses []float64
	var messages []string
	_, err := handler.Execute(context.Background(), &Input{
		TemplateID: "welcome/welcome_email.html",
		Content:    models.ContentMap{},
		OnStatus: func(message string, progress float64) {
			messages = append(messages, message)
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
	assert.Equal(t, "Email ready", messages[len(messages)-1])
}

func TestHandler_CompileHTML_Adapter(t *testing.T) {
	renderer := &fakeRenderer{html: "<html></html>"}
	handler := createTestHandler(t, renderer)

	html, err := handler.CompileHTML(context.Background(), "welcome/welcome_email.html", models.ContentMap{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "<html></html>", html)
}
