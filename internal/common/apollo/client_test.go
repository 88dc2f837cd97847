package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-assistant/internal/models"
)

func testContact() models.ContactRecord {
	return models.ContactRecord{
		"first_name": "Priya",
		"email":      "priya@example.com",
		"company":    "Northwind Labs",
	}
}

func TestClient_EnrichContact(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/people/match", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"person": map[string]interface{}{
				"title": "VP Engineering",
				"city":  "Austin",
				"state": "TX",
				"organization": map[string]interface{}{
					"name":     "Northwind Labs Inc",
					"industry": "SaaS",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	original := testContact()
	enriched, err := client.EnrichContact(context.Background(), original)

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "priya@example.com", gotPayload["email"])
	assert.Equal(t, "Northwind Labs", gotPayload["organization_name"])

	assert.Equal(t, "VP Engineering", enriched.Get("job_title"))
	assert.Equal(t, "Northwind Labs Inc", enriched.Get("company"))
	assert.Equal(t, "SaaS", enriched.Get("industry"))
	assert.Equal(t, "Austin, TX", enriched.Get("location"))

	// original record untouched
	assert.Equal(t, "Northwind Labs", original.Get("company"))
	assert.Empty(t, original.Get("job_title"))
}

func TestClient_EnrichContact_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"person": nil})
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	enriched, err := client.EnrichContact(context.Background(), testContact())

	require.NoError(t, err)
	assert.Equal(t, testContact(), enriched)
}

func TestClient_EnrichContact_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	enriched, err := client.EnrichContact(context.Background(), testContact())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	// the original contact comes back so callers can degrade gracefully
	assert.Equal(t, testContact(), enriched)
}

func TestClient_EnrichContact_PartialPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"person": map[string]interface{}{"title": "CTO"},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	enriched, err := client.EnrichContact(context.Background(), testContact())

	require.NoError(t, err)
	assert.Equal(t, "CTO", enriched.Get("job_title"))
	assert.Equal(t, "Northwind Labs", enriched.Get("company"), "empty fields never overwrite")
	assert.Empty(t, enriched.Get("location"))
}
