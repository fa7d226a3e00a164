package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// SessionStore keeps refresh sessions until they expire or are revoked.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore stores sessions as JSON values with a TTL.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *redisSessionStore) Save(ctx context.Context, session domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	payload, err := json.Marshal(sessionRecord{UserID: session.UserID, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.Token), payload, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, UserID: record.UserID, ExpiresAt: record.ExpiresAt}, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
