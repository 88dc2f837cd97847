// internal/stages/htmlcompile/models.go
package htmlcompile

import "email-assistant/internal/models"

// Input carries one compilation request: the selected template and the
// validated content mapping, including image references.
type Input struct {
	TemplateID string
	Content    models.ContentMap

	// OnStatus receives (message, progress) updates; may be nil.
	OnStatus func(message string, progress float64)
}

// Output carries the final HTML document.
type Output struct {
	HTML string
}
