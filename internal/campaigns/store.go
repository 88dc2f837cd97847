// Package campaigns records completed pipeline runs in Postgres so past
// campaigns can be listed and re-sent.
package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

// ErrNotFound is returned when a run id has no stored record.
var ErrNotFound = errors.New("campaign record not found")

const schema = `
CREATE TABLE IF NOT EXISTS campaign_runs (
	run_id     TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	intent     TEXT NOT NULL,
	template   TEXT NOT NULL,
	content    JSONB NOT NULL,
	html       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_campaign_runs_session ON campaign_runs (session_id, created_at DESC);
`

// Record is one stored pipeline run.
type Record struct {
	RunID     string
	SessionID string
	Intent    string
	Template  string
	Content   models.ContentMap
	HTML      string
	CreatedAt time.Time
}

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db: db,
		logger: log.WithFields(map[string]interface{}{
			"component": "campaigns",
		}),
	}
}

// EnsureSchema creates the campaign_runs table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure campaigns schema: %w", err)
	}
	return nil
}

// Insert stores a finished pipeline run for a session.
func (s *Store) Insert(ctx context.Context, sessionID, intent string, result *models.PipelineResult) error {
	content, err := json.Marshal(result.Content)
	if err != nil {
		return fmt.Errorf("failed to encode campaign content: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaign_runs (run_id, session_id, intent, template, content, html, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.RunID, sessionID, intent, result.Template, content, result.HTML, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store campaign run %s: %w", result.RunID, err)
	}

	s.logger.Info("campaign run stored", map[string]interface{}{
		"runId":     result.RunID,
		"sessionId": sessionID,
	})
	return nil
}

// Get loads one stored run by id.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, session_id, intent, template, content, html, created_at
		 FROM campaign_runs WHERE run_id = $1`, runID)

	var rec Record
	var content []byte
	err := row.Scan(&rec.RunID, &rec.SessionID, &rec.Intent, &rec.Template, &content, &rec.HTML, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign run %s: %w", runID, err)
	}
	if err := json.Unmarshal(content, &rec.Content); err != nil {
		return nil, fmt.Errorf("failed to decode campaign content %s: %w", runID, err)
	}
	return &rec, nil
}

// ListBySession returns a session's runs, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, session_id, intent, template, content, html, created_at
		 FROM campaign_runs WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var content []byte
		if err := rows.Scan(&rec.RunID, &rec.SessionID, &rec.Intent, &rec.Template, &content, &rec.HTML, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign run: %w", err)
		}
		if err := json.Unmarshal(content, &rec.Content); err != nil {
			return nil, fmt.Errorf("failed to decode campaign content %s: %w", rec.RunID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
