package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store handles Redis operations for sessions, sign-in flows and view states
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a new Redis store
func NewStore(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection, used by readiness probes
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
