package templates

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func createTestService(t *testing.T) (*Service, string) {
	dir := t.TempDir()
	return NewService(dir, logger.NewTestLogger(t)), dir
}

func TestService_ListTemplates(t *testing.T) {
	svc, dir := createTestService(t)

	writeTemplate(t, dir, "plain.html", "<html></html>")
	writeTemplate(t, dir, "welcome/welcome_email.html", "<html></html>")
	writeTemplate(t, dir, "newsletters/monthly_newsletter.html", "<html></html>")
	writeTemplate(t, dir, "announcements/product_launch.html", "<html></html>")
	writeTemplate(t, dir, "welcome/notes.txt", "not a template")

	names, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"announcements/product_launch.html",
		"newsletters/monthly_newsletter.html",
		"plain.html",
		"welcome/welcome_email.html",
	}, names)
}

func TestService_ListTemplates_MissingDir(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "nope"), logger.NewTestLogger(t))

	names, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestService_Render(t *testing.T) {
	svc, dir := createTestService(t)
	writeTemplate(t, dir, "welcome/welcome_email.html",
		`<html><body><h1>{{.headline}}</h1><p>{{.welcome_message}}</p>{{if .cta_button}}<a href="{{.cta_url}}">{{.cta_text}}</a>{{end}}<img src="{{.HERO_IMAGE}}"><footer>{{.year}} {{.company_name}} <a href="{{.unsubscribe_link}}">Unsubscribe</a></footer></body></html>`)

	html, err := svc.Render("welcome/welcome_email.html", models.ContentMap{
		"headline":        "Welcome, Priya",
		"welcome_message": "Glad to have you.",
		"company_name":    "Streamline Pro",
		"cta_text":        "Get Started",
		"HERO_IMAGE":      "data:image/png;base64,Zm9v",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Welcome, Priya")
	assert.Contains(t, html, "Glad to have you.")
	assert.Contains(t, html, "Get Started")
	// data URIs must survive rendering untouched
	assert.Contains(t, html, `src="data:image/png;base64,Zm9v"`)
	assert.NotContains(t, html, "ZgotmplZ")
	// unset links default to "#", unset year to the current year
	assert.Contains(t, html, `href="#"`)
	assert.Contains(t, html, strconv.Itoa(time.Now().Year()))
}

func TestService_Render_MissingOptionalFieldsDoNotFail(t *testing.T) {
	svc, dir := createTestService(t)
	writeTemplate(t, dir, "welcome/welcome_email.html",
		`<html><body>{{.headline}}{{.subheadline}}{{.highlight_title}}{{if .HIGHLIGHT_IMAGE}}<img src="{{.HIGHLIGHT_IMAGE}}">{{end}}</body></html>`)

	html, err := svc.Render("welcome/welcome_email.html", models.ContentMap{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<"))
	assert.NotContains(t, html, "<img", "absent image keys render no image tag")
}

func TestService_Render_Errors(t *testing.T) {
	svc, dir := createTestService(t)
	writeTemplate(t, dir, "broken.html", `<html>{{.headline`)

	tests := []struct {
		name       string
		templateID string
		details    string
	}{
		{"missing template", "nope.html", "template not found"},
		{"empty name", "", "invalid template name"},
		{"path traversal", "../secrets.html", "invalid template name"},
		{"absolute path", "/etc/passwd", "invalid template name"},
		{"unparseable template", "broken.html", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Render(tt.templateID, models.ContentMap{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.details)
		})
	}
}

func TestService_RenderStockTemplates(t *testing.T) {
	svc := NewService(filepath.Join("..", "..", "templates"), logger.NewTestLogger(t))

	names, err := svc.ListTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	content := models.ContentMap{
		"subject":         "Subject",
		"preheader":       "Preheader",
		"headline":        "Headline",
		"subheadline":     "Subheadline",
		"welcome_message": "Welcome message",
		"company_name":    "Streamline Pro",
		"feature1_title":  "F1",
		"feature1_text":   "F1 text",
		"feature2_title":  "F2",
		"feature2_text":   "F2 text",
		"highlight_title": "Highlight",
		"highlight_text":  "Highlight text",
		"cta_headline":    "CTA",
		"cta_text":        "Go",
		"HERO_IMAGE":      "https://via.placeholder.com/500x300",
		"FEATURE1_IMAGE":  "https://via.placeholder.com/500x300",
		"FEATURE2_IMAGE":  "https://via.placeholder.com/500x300",
		"HIGHLIGHT_IMAGE": "https://via.placeholder.com/500x300",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			html, err := svc.Render(name, content)
			require.NoError(t, err)
			trimmed := strings.TrimSpace(html)
			assert.True(t, strings.HasPrefix(trimmed, "<"))
			assert.True(t, strings.HasSuffix(trimmed, ">"))
			assert.Contains(t, html, "Headline")
			assert.Contains(t, html, "Streamline Pro")
		})
	}
}
