// Package server exposes the conversational email-assistant HTTP API:
// session lifecycle, contact upload, campaign messages that drive the
// pipeline, status polling, and delivery of compiled emails.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"email-assistant/internal/campaigns"
	pipelineerrors "email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/contacts"
	"email-assistant/internal/delivery"
	"email-assistant/internal/models"
	"email-assistant/internal/session"
	"email-assistant/internal/status"
)

// EmailCreator runs one pipeline pass with a per-run status sink.
type EmailCreator interface {
	CreateEmailWithStatus(ctx context.Context, req models.CampaignRequest, extra status.Reporter) (*models.PipelineResult, error)
}

// Enricher augments a contact record before content generation. Optional.
type Enricher interface {
	EnrichContact(ctx context.Context, contact models.ContactRecord) (models.ContactRecord, error)
}

// Sender delivers a compiled email. Optional.
type Sender interface {
	Send(ctx context.Context, req delivery.Request) (*delivery.Result, error)
}

// CampaignStore persists finished runs. Optional.
type CampaignStore interface {
	Insert(ctx context.Context, sessionID, intent string, result *models.PipelineResult) error
	Get(ctx context.Context, runID string) (*campaigns.Record, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]campaigns.Record, error)
}

// examplePrompts mirrors the quick-start campaigns offered in the UI.
var examplePrompts = map[string]string{
	"Welcome Email for New Customers": "Create a welcome email for new customers who just signed up for our software service, highlighting the key features and offering a quick start guide.",
	"Product Launch Announcement":     "Create an email announcing our new product line of eco-friendly office supplies, emphasizing sustainability and modern design.",
	"Monthly Newsletter":              "Create a monthly newsletter for our fitness app subscribers with workout tips, success stories, and upcoming features.",
}

type Server struct {
	creator   EmailCreator
	sessions  *session.Store
	loader    *contacts.Loader
	history   CampaignStore
	sender    Sender
	enricher  Enricher
	logger    logger.Logger

	mu        sync.Mutex
	snapshots map[string]*status.Snapshot
}

// Option configures optional server collaborators.
type Option func(*Server)

func WithEnricher(e Enricher) Option {
	return func(s *Server) { s.enricher = e }
}

func WithSender(snd Sender) Option {
	return func(s *Server) { s.sender = snd }
}

func WithHistory(h CampaignStore) Option {
	return func(s *Server) { s.history = h }
}

func New(creator EmailCreator, sessions *session.Store, loader *contacts.Loader, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		creator:  creator,
		sessions: sessions,
		loader:   loader,
		logger: log.WithFields(map[string]interface{}{
			"component": "server",
		}),
		snapshots: make(map[string]*status.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/contacts", s.handleUploadContacts)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleMessage)
	mux.HandleFunc("GET /api/sessions/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/sessions/{id}/campaigns", s.handleListCampaigns)
	mux.HandleFunc("POST /api/sessions/{id}/send", s.handleSend)
	mux.HandleFunc("GET /api/examples", s.handleExamples)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleUploadContacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	records, err := s.loader.Load(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.sessions.SetContacts(r.Context(), id, records)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	resp := map[string]interface{}{
		"sessionId": state.ID,
		"contacts":  len(state.Contacts),
	}
	if len(state.Contacts) > 0 {
		resp["sample"] = state.Contacts[0]
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type messageRequest struct {
	Message string `json:"message"`

	// ContactIndex selects which uploaded contact to personalize for.
	ContactIndex int `json:"contactIndex"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	state, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	if len(state.Contacts) == 0 {
		s.writeError(w, http.StatusConflict, "upload contacts before creating a campaign")
		return
	}
	if req.ContactIndex < 0 || req.ContactIndex >= len(state.Contacts) {
		s.writeError(w, http.StatusBadRequest, "contactIndex out of range")
		return
	}

	if _, err := s.sessions.AppendMessage(r.Context(), id, "user", req.Message); err != nil {
		s.writeSessionError(w, err)
		return
	}

	contact := state.Contacts[req.ContactIndex]
	if s.enricher != nil {
		if enriched, err := s.enricher.EnrichContact(r.Context(), contact); err == nil {
			contact = enriched
		} else {
			s.logger.Warn("contact enrichment skipped", map[string]interface{}{
				"sessionId": id,
				"error":     err.Error(),
			})
		}
	}

	snapshot := status.NewSnapshot()
	s.mu.Lock()
	s.snapshots[id] = snapshot
	s.mu.Unlock()

	result, err := s.creator.CreateEmailWithStatus(r.Context(), models.CampaignRequest{
		Intent:  req.Message,
		Contact: contact,
	}, snapshot)
	if err != nil {
		reply := "Something went wrong while creating your email: " + err.Error()
		s.sessions.AppendMessage(r.Context(), id, "assistant", reply)
		s.writePipelineError(w, err)
		return
	}

	if s.history != nil {
		if err := s.history.Insert(r.Context(), id, req.Message, result); err != nil {
			s.logger.Error("failed to persist campaign run", map[string]interface{}{
				"sessionId": id,
				"runId":     result.RunID,
				"error":     err.Error(),
			})
		}
	}

	s.sessions.AppendMessage(r.Context(), id, "assistant",
		"Your email is ready. Template: "+result.Template)

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	snapshot := s.snapshots[id]
	s.mu.Unlock()

	stages := []status.Update{}
	if snapshot != nil {
		stages = snapshot.Stages()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"stages":    stages,
	})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "campaign history is not configured")
		return
	}
	records, err := s.history.ListBySession(r.Context(), r.PathValue("id"), 20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []campaigns.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

type sendRequest struct {
	RunID string `json:"runId"`
	To    string `json:"to"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil || s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "email delivery is not configured")
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.history.Get(r.Context(), req.RunID)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown runId")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.sender.Send(r.Context(), delivery.Request{
		To:      req.To,
		Subject: record.Content["subject"],
		HTML:    record.HTML,
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, examplePrompts)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

// writePipelineError maps the stage taxonomy onto HTTP: the typed error is
// returned as the response body so clients see stage, code and details.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	if pe, ok := pipelineerrors.AsPipelineError(err); ok {
		status := http.StatusUnprocessableEntity
		if pe.Retryable {
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, pe)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}
