// internal/stages/contentgen/prompts.go
package contentgen

import (
	"fmt"
	"strings"

	"email-assistant/internal/models"
)

func buildContentPrompt(contact models.ContactRecord, campaignPurpose string) string {
	return fmt.Sprintf(`Generate personalized email content for the following contact and campaign:

Contact:
- Name: %s
- Job Title: %s
- Company: %s
- Industry: %s

Campaign Purpose: %s

IMPORTANT: Do NOT use placeholders like [Your Company Name] or [Your Software Name] in your response.
Instead, use specific, relevant names based on the campaign purpose. For example, if it's a software product,
give it a specific name like "Streamline Pro" or "TaskMaster". If it's for a company, use the actual company
name from the contact information or create a specific, realistic company name.

Generate a JSON object with the following fields:
- subject: Compelling, personalized subject line with the contact's name and without placeholders
- preheader: Preview text that appears in email clients, without placeholders
- headline: Main email heading that includes the contact's name and company, without placeholders
- subheadline: Supporting text under headline, without placeholders
- welcome_message: Personalized welcome paragraph that mentions the contact's name, job title, and company, without placeholders
- company_name: Use the sender's company name based on the campaign purpose (not the contact's company), without placeholders
- feature1_title: First feature heading, without placeholders
- feature1_text: First feature description, without placeholders
- feature2_title: Second feature heading, without placeholders
- feature2_text: Second feature description, without placeholders
- highlight_title: Special highlight section heading, without placeholders
- highlight_text: Special highlight description, without placeholders
- cta_headline: Call to action section heading, without placeholders
- cta_text: Action-oriented button text, without placeholders

Make the content professional, engaging, and personalized to the contact's role and industry.
Return ONLY the JSON object with no additional text or formatting.`,
		contact.Get("first_name"),
		contact.Get("job_title"),
		contact.Get("company"),
		contact.Get("industry"),
		campaignPurpose)
}

// buildImagePrompt interpolates already-generated text fields into a fixed
// prompt per image slot. The prompts are deterministic given the content.
func buildImagePrompt(imageKey string, content models.ContentMap) string {
	company := content["company_name"]
	switch imageKey {
	case "HERO_IMAGE":
		return fmt.Sprintf("Professional marketing hero image for an email from %s. Theme: %s. %s. Modern, clean, suitable as an email banner, no text overlay.",
			company, content["headline"], content["subheadline"])
	case "FEATURE1_IMAGE":
		return fmt.Sprintf("Clean product illustration for a feature called %q: %s. Minimal, professional style matching a marketing email from %s, no text overlay.",
			content["feature1_title"], content["feature1_text"], company)
	case "FEATURE2_IMAGE":
		return fmt.Sprintf("Clean product illustration for a feature called %q: %s. Minimal, professional style matching a marketing email from %s, no text overlay.",
			content["feature2_title"], content["feature2_text"], company)
	case "HIGHLIGHT_IMAGE":
		return fmt.Sprintf("Eye-catching highlight image for %q: %s. Vibrant but professional, suitable for a marketing email from %s, no text overlay.",
			content["highlight_title"], content["highlight_text"], company)
	default:
		return fmt.Sprintf("Professional marketing image for an email from %s.", company)
	}
}

// stripCodeFence removes a surrounding markdown code fence, if present, so
// the remaining text can be parsed as JSON. Tolerates a language tag on the
// opening fence.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		if i := strings.LastIndex(text, "\n"); i >= 0 {
			text = text[:i]
		} else {
			text = strings.TrimSuffix(text, "```")
		}
	}
	return strings.TrimSpace(text)
}
