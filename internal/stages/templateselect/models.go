// internal/stages/templateselect/models.go
package templateselect

// Input carries one template-selection request.
type Input struct {
	CampaignIntent string
	Candidates     []string

	// OnStatus receives (message, progress) updates; may be nil.
	OnStatus func(message string, progress float64)
}

// Output carries the selected template identifier, always a member of the
// input candidate set.
type Output struct {
	SelectedTemplate string
}
