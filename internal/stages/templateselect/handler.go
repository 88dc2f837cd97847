// internal/stages/templateselect/handler.go
package templateselect

import (
	"context"
	"fmt"
	"strings"

	"email-assistant/internal/ai"
	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/pipeline"
)

const StageName = "template-selection"

// templateDescriptions gives the chooser prompt a hint per stock template.
// Unknown templates get a description derived from their path.
var templateDescriptions = map[string]string{
	"welcome/welcome_email.html":          "Welcome email for new customers or users, focused on onboarding and introduction to services/products",
	"announcements/product_launch.html":   "Product announcement email for launching new products or services, highlighting features and benefits",
	"newsletters/monthly_newsletter.html": "Monthly newsletter format with multiple sections for updates, articles, and regular communications",
}

type Handler struct {
	config *Config
	text   ai.TextGenerator
	logger logger.Logger
}

func NewHandler(config *Config, text ai.TextGenerator, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Keywords) == 0 {
		config.Keywords = DefaultKeywordRules()
	}
	return &Handler{
		config: config,
		text:   text,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// SelectTemplate implements pipeline.TemplateSelector.
func (h *Handler) SelectTemplate(ctx context.Context, campaignIntent string, candidates []string, report pipeline.StatusFunc) (string, error) {
	output, err := h.Execute(ctx, &Input{
		CampaignIntent: campaignIntent,
		Candidates:     candidates,
		OnStatus:       report,
	})
	if err != nil {
		return "", err
	}
	return output.SelectedTemplate, nil
}

// Execute delegates the choice to the text-generation capability and then
// resolves its free-text guess to a guaranteed member of the candidate set.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Candidates) == 0 {
		return nil, errors.NewNoCandidatesError()
	}

	notify(input.OnStatus, "Analyzing campaign intent", 0.3)

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	notify(input.OnStatus, "Evaluating templates", 0.6)

	guess, err := h.text.GenerateText(ctx, buildSelectionPrompt(input.CampaignIntent, input.Candidates))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTemplateSelectionTimeoutError(h.config.Timeout)
		}
		return nil, errors.NewTemplateSelectionFailedError(err)
	}

	selected := h.resolve(strings.TrimSpace(guess), input.CampaignIntent, input.Candidates)
	h.logger.Info("template selected", map[string]interface{}{
		"guess":    strings.TrimSpace(guess),
		"selected": selected,
	})

	notify(input.OnStatus, "Template selected", 1.0)
	return &Output{SelectedTemplate: selected}, nil
}

// resolve maps the chooser's free-text guess onto the candidate set. The
// chooser is not guaranteed to emit a name from the exact set, so the
// cascade always terminates with a valid member: exact match, then keyword
// mapping against the intent, then fuzzy containment, then the first
// candidate.
func (h *Handler) resolve(guess, campaignIntent string, candidates []string) string {
	for _, candidate := range candidates {
		if candidate == guess {
			return candidate
		}
	}

	intent := strings.ToLower(campaignIntent)
	for _, rule := range h.config.Keywords {
		if !strings.Contains(intent, rule.Keyword) {
			continue
		}
		for _, candidate := range candidates {
			if candidate == rule.Template {
				return candidate
			}
		}
	}

	if lowered := strings.ToLower(guess); lowered != "" {
		for _, candidate := range candidates {
			cl := strings.ToLower(candidate)
			if strings.Contains(cl, lowered) || strings.Contains(lowered, cl) {
				return candidate
			}
		}
	}

	return candidates[0]
}

func buildSelectionPrompt(campaignIntent string, candidates []string) string {
	described := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		described = append(described, fmt.Sprintf("%s - %s", candidate, describeTemplate(candidate)))
	}

	return fmt.Sprintf(`Select the most appropriate email template for the following campaign:

Campaign Intent:
%s

Available Templates:
%s

Consider the following factors:
- The primary goal of the campaign (welcome, announcement, newsletter, etc.)
- The type of content needed (promotional, informational, onboarding, etc.)
- The expected engagement level
- The complexity of the message

Return only the exact template name (including folder path) that would be most effective.`,
		campaignIntent, strings.Join(described, ", "))
}

func describeTemplate(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	base := strings.TrimSuffix(name, ".html")
	category := "general"
	if i := strings.Index(base, "/"); i >= 0 {
		category = base[:i]
		base = base[i+1:]
	}
	return fmt.Sprintf("%s email in the %s category", strings.ReplaceAll(base, "_", " "), category)
}

func notify(fn func(string, float64), message string, progress float64) {
	if fn != nil {
		fn(message, progress)
	}
}
