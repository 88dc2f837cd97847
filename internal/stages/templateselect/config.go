// internal/stages/templateselect/config.go
package templateselect

import "time"

// KeywordRule maps a campaign-intent keyword to a canonical template. Rules
// are applied in order; the first matching keyword whose template is present
// in the candidate set wins.
type KeywordRule struct {
	Keyword  string
	Template string
}

type Config struct {
	Timeout  time.Duration
	Keywords []KeywordRule
}

// DefaultKeywordRules covers the stock template families.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Keyword: "welcome", Template: "welcome/welcome_email.html"},
		{Keyword: "onboarding", Template: "welcome/welcome_email.html"},
		{Keyword: "product launch", Template: "announcements/product_launch.html"},
		{Keyword: "announcement", Template: "announcements/product_launch.html"},
		{Keyword: "newsletter", Template: "newsletters/monthly_newsletter.html"},
		{Keyword: "monthly", Template: "newsletters/monthly_newsletter.html"},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		Keywords: DefaultKeywordRules(),
	}
}
