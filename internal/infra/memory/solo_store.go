package memory

import (
	"context"
	"sync"

	"quizhall/internal/domain"
)

// SoloStore is an in-memory implementation of app.SessionStore. Sessions are
// stored by value; expiry is the caller's concern (checked lazily on access).
type SoloStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SoloSession
}

func NewSoloStore() *SoloStore {
	return &SoloStore{sessions: make(map[string]domain.SoloSession)}
}

func (s *SoloStore) Get(_ context.Context, token string) (domain.SoloSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	return session, ok, nil
}

func (s *SoloStore) Put(_ context.Context, session domain.SoloSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *SoloStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
