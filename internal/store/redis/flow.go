package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// SaveFlow stores a PKCE verifier for a pending sign-in
func (s *Store) SaveFlow(ctx context.Context, flowID, verifier string, ttl time.Duration) error {
	if err := s.client.Set(ctx, FlowKey(flowID), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// TakeFlow atomically reads and deletes a PKCE verifier
func (s *Store) TakeFlow(ctx context.Context, flowID string) (string, error) {
	verifier, err := s.client.GetDel(ctx, FlowKey(flowID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrFlowNotFound
		}
		return "", fmt.Errorf("failed to take flow: %w", err)
	}
	return verifier, nil
}
