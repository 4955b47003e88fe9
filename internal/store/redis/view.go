package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// SaveView stores a dashboard view state
func (s *Store) SaveView(ctx context.Context, sid string, v *domain.ViewState, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}

	if err := s.client.Set(ctx, ViewKey(sid), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// LoadView retrieves a view state, nil when it does not exist
func (s *Store) LoadView(ctx context.Context, sid string) (*domain.ViewState, error) {
	data, err := s.client.Get(ctx, ViewKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get view: %w", err)
	}

	var v domain.ViewState
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view: %w", err)
	}
	if v.Bookmarks == nil {
		v.Bookmarks = []domain.Bookmark{}
	}

	return &v, nil
}

// DeleteView removes a view state
func (s *Store) DeleteView(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, ViewKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	return nil
}
