// Package templates manages the on-disk email template library: discovery
// of available templates and rendering with default substitution for unset
// optional fields.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

// Service lists and renders templates under a single root directory.
// Templates live either at the root or one subdirectory deep; the template
// identifier is the path relative to the root ("welcome/welcome_email.html").
type Service struct {
	dir    string
	logger logger.Logger
}

func NewService(dir string, log logger.Logger) *Service {
	return &Service{
		dir: dir,
		logger: log.WithFields(map[string]interface{}{
			"component": "templates",
		}),
	}
}

// ListTemplates returns every .html file at the root and one level down,
// sorted. A missing root directory yields an empty list, not an error.
func (s *Service) ListTemplates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			if strings.HasSuffix(entry.Name(), ".html") {
				names = append(names, entry.Name())
			}
			continue
		}
		subEntries, err := os.ReadDir(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read templates subdirectory %s: %w", entry.Name(), err)
		}
		for _, sub := range subEntries {
			if !sub.IsDir() && strings.HasSuffix(sub.Name(), ".html") {
				names = append(names, entry.Name()+"/"+sub.Name())
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Render loads the template and renders it with the content mapping.
// Optional fields absent from content fall back to defaults so rendering
// never fails on a missing key.
func (s *Service) Render(templateID string, content models.ContentMap) (string, error) {
	path, err := s.resolve(templateID)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(filepath.Base(path)).ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateVars(content)); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateID, err)
	}
	return buf.String(), nil
}

// resolve maps a template identifier to a file path, rejecting identifiers
// that would escape the template root.
func (s *Service) resolve(templateID string) (string, error) {
	if templateID == "" || strings.Contains(templateID, "..") || strings.HasPrefix(templateID, "/") {
		return "", fmt.Errorf("invalid template name: %s", templateID)
	}
	path := filepath.Join(s.dir, filepath.FromSlash(templateID))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("template not found: %s", templateID)
	}
	return path, nil
}

// templateVars builds the rendering context. Every optional field has a
// default; image values and links are marked as safe URLs since generated
// images arrive as data: URIs.
func templateVars(content models.ContentMap) map[string]interface{} {
	get := func(key string) string { return content[key] }
	link := func(key string) template.URL {
		if v := content[key]; v != "" {
			return template.URL(v)
		}
		return template.URL("#")
	}

	vars := map[string]interface{}{
		"subject":   get("subject"),
		"preheader": get("preheader"),

		"headline":        get("headline"),
		"subheadline":     get("subheadline"),
		"welcome_message": get("welcome_message"),

		"company_name":    get("company_name"),
		"company_address": get("company_address"),
		"logo_url":        link("logo_url"),

		"feature1_title": get("feature1_title"),
		"feature1_text":  get("feature1_text"),
		"feature2_title": get("feature2_title"),
		"feature2_text":  get("feature2_text"),

		"highlight_title": get("highlight_title"),
		"highlight_text":  get("highlight_text"),

		"cta_headline": get("cta_headline"),
		"cta_text":     get("cta_text"),
		"cta_button":   get("cta_text") != "",
		"cta_url":      link("cta_url"),

		"privacy_link":     link("privacy_link"),
		"terms_link":       link("terms_link"),
		"unsubscribe_link": link("unsubscribe_link"),

		"year": time.Now().Year(),
	}

	for key, value := range content {
		if strings.HasSuffix(key, "_IMAGE") {
			vars[key] = template.URL(value)
		}
	}
	return vars
}
