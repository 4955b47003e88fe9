// Package session owns the browser-session lifecycle: OAuth hand-off,
// code exchange, refresh, sign-out and change notifications.
package session

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// Store persists sessions and pending sign-in flows, keyed by opaque ids.
type Store interface {
	// SaveSession stores s under sid for ttl.
	SaveSession(ctx context.Context, sid string, s *domain.Session, ttl time.Duration) error
	// GetSession returns nil, nil when sid is unknown.
	GetSession(ctx context.Context, sid string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sid string) error
	// SessionIDs lists every stored sid.
	SessionIDs(ctx context.Context) ([]string, error)

	SaveFlow(ctx context.Context, flowID, verifier string, ttl time.Duration) error
	// TakeFlow returns and deletes the verifier; domain.ErrFlowNotFound when absent.
	TakeFlow(ctx context.Context, flowID string) (string, error)
}

// Handler receives session events for one sid.
type Handler = func(domain.SessionEvent)

// Broker fans session events out to subscribers of a sid.
type Broker interface {
	Publish(ctx context.Context, sid string, ev domain.SessionEvent) error
	// Subscribe registers h until the returned cancel func is called.
	Subscribe(ctx context.Context, sid string, h Handler) (func(), error)
}

// Identity is the remote identity service.
type Identity interface {
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
