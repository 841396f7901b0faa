// Package server is the conversation front-end: it owns per-session state,
// validates inbound turns, asks the slot-recognition oracle for a structured
// reading, and hands the turn to the dialog engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"dining-concierge/internal/common/config"
	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/common/observability"
	"dining-concierge/internal/common/validation"
	"dining-concierge/internal/dialog"
	"dining-concierge/internal/models"
	"dining-concierge/internal/nlu"
)

const (
	invalidTurnReply = "Sorry, I couldn't read that message. Please send your request again."
	oracleDownReply  = "Sorry, I encountered an error. Please try again."
)

// TurnRequest is the inbound chat payload.
type TurnRequest struct {
	SessionID  string `json:"sessionId"`
	Text       string `json:"text"`
	IntentHint string `json:"intentHint,omitempty"`
}

// TurnResponse is what the chat client renders.
type TurnResponse struct {
	SessionID    string          `json:"sessionId"`
	Message      string          `json:"message"`
	Action       string          `json:"action"`
	SlotToElicit models.SlotName `json:"slotToElicit,omitempty"`
}

// session pairs conversation state with the lock that serializes turns on
// it. The engine mutates the SlotSet in place, so concurrent turns for the
// same sessionId must run one at a time.
type session struct {
	mu    sync.Mutex
	state *models.ConversationState
}

// SessionStore keeps per-session conversation state. Sessions are isolated
// by id; turns within one session are serialized on the session lock.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// Get returns the session, creating it on first use.
func (s *SessionStore) Get(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{state: models.NewConversationState(sessionID)}
		s.sessions[sessionID] = sess
	}
	return sess
}

type Server struct {
	engine   *dialog.Engine
	oracle   nlu.Oracle
	sessions *SessionStore
	cfg      config.HTTPConfig
	logger   logger.Logger
	obs      *observability.Observability

	srvMu sync.Mutex
	srv   *http.Server
}

func New(engine *dialog.Engine, oracle nlu.Oracle, cfg config.HTTPConfig, log logger.Logger, obs *observability.Observability) *Server {
	return &Server{
		engine:   engine,
		oracle:   oracle,
		sessions: NewSessionStore(),
		cfg:      cfg,
		logger:   log.With(map[string]interface{}{"component": "chat-api"}),
		obs:      obs,
	}
}

// Handler returns the chat API mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleHealth)
	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeReply(w, http.StatusBadRequest, TurnResponse{Message: invalidTurnReply})
		return
	}

	if err := validation.ValidateTurn(payload); err != nil {
		var stdErr *stderrors.StandardError
		detail := err.Error()
		if errors.As(err, &stdErr) {
			detail = stdErr.Details
		}
		s.logger.Warn("turn rejected", map[string]interface{}{"detail": detail})
		sessionID, _ := payload["sessionId"].(string)
		s.writeReply(w, http.StatusBadRequest, TurnResponse{
			SessionID: sessionID,
			Message:   invalidTurnReply,
		})
		return
	}

	var turn TurnRequest
	raw, _ := json.Marshal(payload)
	_ = json.Unmarshal(raw, &turn)

	result, err := s.oracle.Parse(r.Context(), turn.SessionID, turn.Text)
	if err != nil {
		s.logger.Error("oracle parse failed", map[string]interface{}{
			"session_id": turn.SessionID,
			"error":      err.Error(),
		})
		s.writeReply(w, http.StatusBadGateway, TurnResponse{
			SessionID: turn.SessionID,
			Message:   oracleDownReply,
		})
		return
	}

	intent := result.Intent
	if intent == "" {
		intent = turn.IntentHint
	}

	sess := s.sessions.Get(turn.SessionID)
	sess.mu.Lock()
	action := s.engine.HandleTurn(r.Context(), sess.state, intent, result.Slots)
	sess.mu.Unlock()
	if s.obs != nil {
		s.obs.RecordTurn(r.Context(), intent)
	}

	s.writeReply(w, http.StatusOK, TurnResponse{
		SessionID:    turn.SessionID,
		Message:      action.Message,
		Action:       string(action.Type),
		SlotToElicit: action.SlotToElicit,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) writeReply(w http.ResponseWriter, status int, resp TurnResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("reply encode failed", map[string]interface{}{"error": err.Error()})
	}
}

// ListenAndServe runs the chat API with the configured timeouts.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  config.GetDuration(s.cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(s.cfg.WriteTimeout),
	}
	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()

	s.logger.Info("chat API listening", map[string]interface{}{"address": s.cfg.Address})
	return srv.ListenAndServe()
}

// Shutdown drains in-flight turns and stops the listener. A no-op when the
// server was never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
