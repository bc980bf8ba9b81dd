package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	"github.com/google/uuid"
)

// Session is one ongoing conversation with abuse bookkeeping. All fields are
// owned by the SessionStore and must only be touched through its methods.
type Session struct {
	SessionID    string
	CreatedAt    time.Time
	LastActivity time.Time
	MessageCount int
	Warnings     int
	BlockedUntil time.Time
	Context      map[string]interface{}
	History      []dto.ChatTurn
}

// IsBlocked reports whether the session is under an active block at t.
func (s *Session) IsBlocked(t time.Time) bool {
	return !s.BlockedUntil.IsZero() && t.Before(s.BlockedUntil)
}

// SessionStore is the in-memory session table. A single mutex guards all
// mutation, shared with warning and block-state updates so an expiry sweep
// cannot race a concurrent warning increment.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewSessionStore creates a session store with the given inactivity timeout.
func NewSessionStore(timeout time.Duration, log *logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, refreshing its last activity. An
// expired session is deleted and replaced by a fresh one. An empty id creates
// a session under a generated opaque id.
func (s *SessionStore) GetOrCreate(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sessionID != "" {
		if session, ok := s.sessions[sessionID]; ok {
			if now.Sub(session.LastActivity) > s.timeout {
				s.log.Info("Session expired", logger.StringField("session_id", sessionID))
				delete(s.sessions, sessionID)
			} else {
				session.LastActivity = now
				return session
			}
		}
	}

	newID := sessionID
	if newID == "" {
		newID = s.generateID("anon")
	}
	session := &Session{
		SessionID:    newID,
		CreatedAt:    now,
		LastActivity: now,
		Context:      make(map[string]interface{}),
	}
	s.sessions[newID] = session
	s.log.Info("New session created", logger.StringField("session_id", newID))
	return session
}

// Clear resets message count, context, and history. Warnings and block state
// survive a clear so it cannot be used to dodge an active block.
func (s *SessionStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	session.MessageCount = 0
	session.Context = make(map[string]interface{})
	session.History = nil
	s.log.Info("Session cleared", logger.StringField("session_id", sessionID))
	return true
}

// Info returns a read-only snapshot, or nil if the session does not exist.
func (s *SessionStore) Info(sessionID string) *dto.SessionInfoResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return &dto.SessionInfoResponse{
		SessionID:    session.SessionID,
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
		LastActivity: session.LastActivity.Format(time.RFC3339),
		MessageCount: session.MessageCount,
		Warnings:     session.Warnings,
		IsBlocked:    session.IsBlocked(s.now()),
	}
}

// SweepExpired removes every session idle past the timeout and returns the
// number removed. Keys are snapshotted and deleted under the lock.
func (s *SessionStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for id, session := range s.sessions {
		if now.Sub(session.LastActivity) > s.timeout {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	if len(expired) > 0 {
		s.log.Info("Cleaned up expired sessions", logger.IntField("count", len(expired)))
	}
	return len(expired)
}

// RecordWarning increments the session's warning count and, once it reaches
// maxWarnings, applies a timed block. Returns the new warning count and
// whether the session is now blocked.
func (s *SessionStore) RecordWarning(sessionID string, maxWarnings int, blockDuration time.Duration) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, false
	}
	session.Warnings++
	if session.Warnings >= maxWarnings {
		session.BlockedUntil = s.now().Add(blockDuration)
		return session.Warnings, true
	}
	return session.Warnings, false
}

// AppendHistory appends a user/assistant turn pair and bumps the message count.
func (s *SessionStore) AppendHistory(sessionID, userMessage, assistantMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	session.History = append(session.History,
		dto.ChatTurn{Role: "user", Content: userMessage},
		dto.ChatTurn{Role: "assistant", Content: assistantMessage},
	)
	session.MessageCount++
}

// HistoryWindow returns a copy of the most recent n turns.
func (s *SessionStore) HistoryWindow(sessionID string, n int) []dto.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	history := session.History
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]dto.ChatTurn, len(history))
	copy(out, history)
	return out
}

// generateID derives an opaque fixed-length token from the identifier, the
// current time, and a uniqueness salt.
func (s *SessionStore) generateID(identifier string) string {
	base := fmt.Sprintf("%s-%d-%s", identifier, s.now().UnixNano(), uuid.NewString())
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])[:16]
}
