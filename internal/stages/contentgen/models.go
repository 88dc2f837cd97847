// internal/stages/contentgen/models.go
package contentgen

import "email-assistant/internal/models"

// RequiredFields is the complete set of text fields the generated content
// must carry. Validation collects every missing name rather than stopping
// at the first.
var RequiredFields = []string{
	"subject",
	"preheader",
	"headline",
	"subheadline",
	"welcome_message",
	"company_name",
	"feature1_title",
	"feature1_text",
	"feature2_title",
	"feature2_text",
	"highlight_title",
	"highlight_text",
	"cta_headline",
	"cta_text",
}

// ImageKeys lists the image slots filled after text generation, in the
// order they are generated.
var ImageKeys = []string{
	"HERO_IMAGE",
	"FEATURE1_IMAGE",
	"FEATURE2_IMAGE",
	"HIGHLIGHT_IMAGE",
}

// Input carries one content-generation request.
type Input struct {
	Contact         models.ContactRecord
	CampaignPurpose string

	// OnStatus receives (message, progress) updates; may be nil.
	OnStatus func(message string, progress float64)
}

// Output carries the complete content mapping: every required text field
// plus every image key.
type Output struct {
	Content models.ContentMap
}
