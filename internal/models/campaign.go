package models

import "time"

// ContentMap is the flat string-keyed record combining generated text fields
// and generated image references.
type ContentMap map[string]string

// CampaignRequest is one email-creation request, built per user turn and
// passed by value into the pipeline.
type CampaignRequest struct {
	// Intent describes the campaign's purpose and goals in free text.
	Intent string `json:"intent"`

	// Contact is the recipient used for personalization.
	Contact ContactRecord `json:"contact"`

	// Candidates optionally restricts template selection to an explicit,
	// ordered candidate set. When empty the pipeline lists the available
	// templates itself.
	Candidates []string `json:"candidates,omitempty"`
}

// PipelineResult is the terminal artifact of a pipeline run. It is immutable
// once returned; any persistence is the caller's responsibility.
type PipelineResult struct {
	RunID     string     `json:"runId"`
	Template  string     `json:"template"`
	Content   ContentMap `json:"content"`
	HTML      string     `json:"html"`
	CreatedAt time.Time  `json:"createdAt"`
}
