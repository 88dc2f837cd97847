// internal/stages/htmlcompile/handler.go
package htmlcompile

import (
	"context"
	"fmt"
	"strings"

	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
	"email-assistant/internal/pipeline"
)

const StageName = "html-compilation"

// Renderer maps named placeholders to values, substituting defaults for any
// optional field absent from content.
type Renderer interface {
	Render(templateID string, content models.ContentMap) (string, error)
}

type Handler struct {
	config   *Config
	renderer Renderer
	logger   logger.Logger
}

func NewHandler(config *Config, renderer Renderer, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Handler{
		config:   config,
		renderer: renderer,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// CompileHTML implements pipeline.Compiler.
func (h *Handler) CompileHTML(ctx context.Context, templateID string, content models.ContentMap, report pipeline.StatusFunc) (string, error) {
	output, err := h.Execute(ctx, &Input{
		TemplateID: templateID,
		Content:    content,
		OnStatus:   report,
	})
	if err != nil {
		return "", err
	}
	return output.HTML, nil
}

// Execute renders the template and runs the structural sanity check: output
// must be nonempty and its trimmed text bounded by '<' and '>'.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	notify(input.OnStatus, "Processing template", 0.3)

	html, err := h.renderer.Render(input.TemplateID, input.Content)
	if err != nil {
		return nil, errors.NewCompilationFailedError(err.Error())
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewCompilationFailedError(
			fmt.Sprintf("timed out after %s", h.config.Timeout))
	}

	notify(input.OnStatus, "Validating HTML", 0.7)

	trimmed := strings.TrimSpace(html)
	if trimmed == "" {
		return nil, errors.NewCompilationFailedError("rendering produced empty output")
	}
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return nil, errors.NewCompilationFailedError("rendered output is not an HTML document")
	}

	h.logger.Info("email compiled", map[string]interface{}{
		"template": input.TemplateID,
		"bytes":    len(html),
	})

	notify(input.OnStatus, "Email ready", 1.0)
	return &Output{HTML: html}, nil
}

func notify(fn func(string, float64), message string, progress float64) {
	if fn != nil {
		fn(message, progress)
	}
}
