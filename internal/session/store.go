// Package session keeps ephemeral chat history in process memory, keyed by
// session id. Nothing here survives a restart; durability is explicitly out
// of scope for chat sessions.
package session

import (
	"sync"

	"github.com/google/uuid"

	"casecounsel/internal/ai"
)

// Session holds one conversation's ordered turns. Concurrent requests for
// the same session id must serialize through Lock for the whole agent run,
// otherwise interleaved histories corrupt the conversation.
type Session struct {
	ID string

	mu       sync.Mutex
	history  []ai.ChatMessage
	maxTurns int
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// History returns a copy of the turns; callers must hold the session lock.
func (s *Session) History() []ai.ChatMessage {
	out := make([]ai.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// AppendTurn records one user/assistant exchange, trimming the oldest turns
// beyond the configured window. Callers must hold the session lock.
func (s *Session) AppendTurn(userContent, assistantContent string) {
	s.history = append(s.history,
		ai.ChatMessage{Role: ai.RoleUser, Content: userContent},
		ai.ChatMessage{Role: ai.RoleAssistant, Content: assistantContent},
	)
	if s.maxTurns > 0 && len(s.history) > s.maxTurns {
		s.history = s.history[len(s.history)-s.maxTurns:]
	}
}

// Store is the shared session map. Access to the map itself is guarded
// separately from the per-session locks.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxTurns int
}

func NewStore(maxTurns int) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		maxTurns: maxTurns,
	}
}

// GetOrCreate returns the session for id, creating it (and generating an id
// when none was supplied).
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return sess
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		return sess
	}
	sess = &Session{ID: id, maxTurns: st.maxTurns}
	st.sessions[id] = sess
	return sess
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
