// Package apollo enriches uploaded contacts through the Apollo people-match
// API. Enrichment is best-effort: callers fall back to the original record
// when the API is unavailable or has no match.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	httpclient "email-assistant/internal/common/http"
	"email-assistant/internal/models"
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.Client
}

type matchResponse struct {
	Person *struct {
		Title        string `json:"title"`
		City         string `json:"city"`
		State        string `json:"state"`
		Organization struct {
			Name     string `json:"name"`
			Industry string `json:"industry"`
		} `json:"organization"`
	} `json:"person"`
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.apollo.io/v1"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpclient.NewClient(30 * time.Second),
	}
}

// EnrichContact looks the contact up by email or (first_name, company) and
// merges job title, company, industry and location into a copy of the
// record. The input record is never mutated.
func (c *Client) EnrichContact(ctx context.Context, contact models.ContactRecord) (models.ContactRecord, error) {
	url := fmt.Sprintf("%s/people/match", c.baseURL)

	payload := map[string]interface{}{
		"email":             contact.Get("email"),
		"first_name":        contact.Get("first_name"),
		"organization_name": contact.Get("company"),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return contact, fmt.Errorf("failed to marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return contact, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contact, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contact, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return contact, fmt.Errorf("people match failed (status %d): %s", resp.StatusCode, string(body))
	}

	var match matchResponse
	if err := json.Unmarshal(body, &match); err != nil {
		return contact, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if match.Person == nil {
		return contact, nil
	}

	enriched := contact.Clone()
	person := match.Person
	if person.Title != "" {
		enriched["job_title"] = person.Title
	}
	if person.Organization.Name != "" {
		enriched["company"] = person.Organization.Name
	}
	if person.Organization.Industry != "" {
		enriched["industry"] = person.Organization.Industry
	}
	if person.City != "" {
		location := person.City
		if person.State != "" {
			location = fmt.Sprintf("%s, %s", person.City, person.State)
		}
		enriched["location"] = location
	}

	return enriched, nil
}
