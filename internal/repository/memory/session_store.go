package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore holds refresh sessions in process memory.
type SessionStore struct {
	mu    sync.Mutex
	items map[string]domain.Session
	now   func() time.Time
}

// NewSessionStore returns an empty store using clock for expiry; nil means time.Now.
func NewSessionStore(clock func() time.Time) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{items: make(map[string]domain.Session), now: clock}
}

func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.Token] = session
	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.items, token)
		return nil, apperrors.ErrNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
	return nil
}
