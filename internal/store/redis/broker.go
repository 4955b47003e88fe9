package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

// Broker carries session events over Redis pub/sub so every instance
// behind a load balancer sees sign-outs and refreshes.
type Broker struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewBroker creates a pub/sub broker
func NewBroker(client redis.UniversalClient, log logger.Logger) *Broker {
	return &Broker{client: client, logger: log}
}

// wireEvent is what travels on the channel. Tokens never leave the process
// that owns them; subscribers re-read the session from the store.
type wireEvent struct {
	Type  domain.EventType `json:"type"`
	User  *domain.User     `json:"user,omitempty"`
	AtUTC int64            `json:"at"`
}

// Publish sends an event to the session's channel
func (b *Broker) Publish(ctx context.Context, sid string, ev domain.SessionEvent) error {
	msg := wireEvent{Type: ev.Type, AtUTC: ev.At.UnixMilli()}
	if ev.Session != nil {
		u := ev.Session.User
		msg.User = &u
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, EventsChannel(sid), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the session's channel until cancel is called or ctx
// ends. Handlers run on a single goroutine per subscription.
func (b *Broker) Subscribe(ctx context.Context, sid string, h func(domain.SessionEvent)) (func(), error) {
	ps := b.client.Subscribe(ctx, EventsChannel(sid))

	// Wait for the subscription confirmation so no event published right
	// after Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	done := make(chan struct{})
	ch := ps.Channel()

	go func() {
		defer close(done)
		for msg := range ch {
			var w wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &w); err != nil {
				b.logger.Warn("dropping malformed session event",
					logger.String("channel", msg.Channel),
					logger.Error(err))
				continue
			}
			h(toEvent(w))
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				b.logger.Debug("pubsub close", logger.Error(err))
			}
			<-done
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return cancel, nil
}

func toEvent(w wireEvent) domain.SessionEvent {
	ev := domain.SessionEvent{Type: w.Type}
	if w.AtUTC > 0 {
		ev.At = time.UnixMilli(w.AtUTC).UTC()
	}
	if w.User != nil && w.Type != domain.EventSignedOut {
		ev.Session = &domain.Session{User: *w.User}
	}
	return ev
}
