// Package session persists conversation state in Redis. Each session holds
// the chat transcript, the uploaded contacts, and the campaign details
// collected so far; state survives process restarts for the configured TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Message is one turn of the conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the full persisted session.
type State struct {
	ID              string                 `json:"id"`
	Messages        []Message              `json:"messages"`
	Contacts        []models.ContactRecord `json:"contacts,omitempty"`
	CampaignDetails string                 `json:"campaignDetails,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{
			"component": "session",
		}),
	}
}

// Create starts a new session and persists it.
func (s *Store) Create(ctx context.Context) (*State, error) {
	now := time.Now().UTC()
	state := &State{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info("session created", map[string]interface{}{
		"sessionId": state.ID,
	})
	return state, nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (*State, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &state, nil
}

// Save persists the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+state.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", state.ID, err)
	}
	return nil
}

// AppendMessage adds one conversation turn and persists the session.
func (s *Store) AppendMessage(ctx context.Context, id, role, content string) (*State, error) {
	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state.Messages = append(state.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetContacts attaches validated contacts to the session.
func (s *Store) SetContacts(ctx context.Context, id string, contacts []models.ContactRecord) (*State, error) {
	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state.Contacts = contacts
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}
