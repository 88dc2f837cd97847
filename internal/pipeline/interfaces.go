package pipeline

import (
	"context"

	"email-assistant/internal/models"
)

// StatusFunc reports one (message, progress) update for the stage that was
// handed the function. Implementations are non-blocking; stages may call it
// at any point, including never.
type StatusFunc func(message string, progress float64)

// TemplateSelector picks exactly one template from a nonempty, ordered
// candidate set. The returned identifier is always a member of candidates.
type TemplateSelector interface {
	SelectTemplate(ctx context.Context, campaignIntent string, candidates []string, report StatusFunc) (string, error)
}

// ContentGenerator produces the full content mapping for a contact and
// campaign purpose: all required text fields plus the generated image
// references.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, contact models.ContactRecord, campaignPurpose string, report StatusFunc) (models.ContentMap, error)
}

// Compiler renders the selected template with the content mapping into the
// final HTML document.
type Compiler interface {
	CompileHTML(ctx context.Context, templateID string, content models.ContentMap, report StatusFunc) (string, error)
}

// TemplateLister supplies the candidate set when a request does not carry an
// explicit one.
type TemplateLister interface {
	ListTemplates() ([]string, error)
}
