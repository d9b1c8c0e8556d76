package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizhall/internal/domain"
)

// SoloStore keeps solo sessions in Redis as JSON blobs with a TTL matching
// the session lifetime. Redis expiry and the service's lazy expiry check
// agree on the same 24h window, so a key vanishing early is indistinguishable
// from an expired session: the service recreates either way.
type SoloStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSoloStore(client *redis.Client, ttl time.Duration) *SoloStore {
	if ttl <= 0 {
		ttl = domain.SessionTTL
	}
	return &SoloStore{client: client, ttl: ttl}
}

func (s *SoloStore) Get(ctx context.Context, token string) (domain.SoloSession, bool, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SoloSession{}, false, nil
	}
	if err != nil {
		return domain.SoloSession{}, false, fmt.Errorf("get session: %w", err)
	}
	var session domain.SoloSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.SoloSession{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

func (s *SoloStore) Put(ctx context.Context, session domain.SoloSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.Token), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SoloStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SoloStore) key(token string) string {
	return "solo:session:" + token
}
