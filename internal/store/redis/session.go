package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// SaveSession stores a session in Redis
func (s *Store) SaveSession(ctx context.Context, sid string, sess *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, SessionKey(sid), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session from Redis, nil when it does not exist
func (s *Store) GetSession(ctx context.Context, sid string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// DeleteSession removes a session and its view state
func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, SessionKey(sid), ViewKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SessionIDs lists stored sessions with SCAN
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	var ids []string

	iter := s.client.Scan(ctx, 0, KeyPrefixSession+"*", 100).Iterator()
	for iter.Next(ctx) {
		sid, err := ExtractSessionID(iter.Val())
		if err != nil {
			continue
		}
		ids = append(ids, sid)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}
