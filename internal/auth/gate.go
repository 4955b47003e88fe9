// Package auth guards protected views behind a valid session.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/session"
)

const (
	// SessionCookie carries the browser session id.
	SessionCookie = "mt_session"
	// FlowCookie carries the pending sign-in flow id between login and callback.
	FlowCookie = "mt_flow"
	// LoginPath is where unauthenticated visitors are sent.
	LoginPath = "/login"
)

// Sessions is the part of the session manager the gate needs.
type Sessions interface {
	GetSession(ctx context.Context, sid string) (*domain.Session, error)
	OnSessionChange(ctx context.Context, sid string, fn session.Handler) (*session.Subscription, error)
}

// Decision is the outcome of a check.
type Decision struct {
	Authenticated bool
	Session       *domain.Session // nil unless Authenticated
	Event         domain.EventType
}

// User returns the identity, zero when unauthenticated.
func (d Decision) User() domain.User {
	if d.Session == nil {
		return domain.User{}
	}
	return d.Session.User
}

// Gate decides whether a browser session may see protected views.
type Gate struct {
	sessions Sessions
	logger   logger.Logger
	cookies  CookieOptions
}

// NewGate creates a gate over the session manager.
func NewGate(sessions Sessions, log logger.Logger, cookies CookieOptions) *Gate {
	if cookies.MaxAge <= 0 {
		cookies.MaxAge = 7 * 24 * time.Hour
	}
	return &Gate{sessions: sessions, logger: log, cookies: cookies}
}

// Check looks up the session for sid. A failed lookup counts as no session.
func (g *Gate) Check(ctx context.Context, sid string) Decision {
	if sid == "" {
		return Decision{}
	}

	sess, err := g.sessions.GetSession(ctx, sid)
	if err != nil {
		g.logger.Warn("session lookup failed, treating as signed out",
			logger.Error(err))
		return Decision{}
	}
	if sess == nil {
		return Decision{}
	}

	return Decision{Authenticated: true, Session: sess}
}

// Require redirects unauthenticated requests to the login page and stores
// the session in the request context for the rest.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := SessionID(r)
		d := g.Check(r.Context(), sid)
		if !d.Authenticated {
			if sid != "" {
				g.ClearSessionCookie(w)
			}
			RedirectToLogin(w, r)
			return
		}

		ctx := WithSession(r.Context(), sid, d.Session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPI is Require for JSON clients: 401 instead of a redirect.
func (g *Gate) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := SessionID(r)
		d := g.Check(r.Context(), sid)
		if !d.Authenticated {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"not authenticated"}` + "\n"))
			return
		}

		ctx := WithSession(r.Context(), sid, d.Session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Watch calls fn for every session change on sid until release is called
// or ctx ends. A signed-out event yields an unauthenticated decision.
func (g *Gate) Watch(ctx context.Context, sid string, fn func(Decision)) (func(), error) {
	sub, err := g.sessions.OnSessionChange(ctx, sid, func(ev domain.SessionEvent) {
		if ev.Session == nil {
			fn(Decision{Event: ev.Type})
			return
		}
		fn(Decision{Authenticated: true, Session: ev.Session, Event: ev.Type})
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// RedirectToLogin sends the browser to the login page: 302 for GET and
// HEAD, 303 otherwise so the follow-up is a GET.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	code := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		code = http.StatusFound
	}
	http.Redirect(w, r, LoginPath, code)
}
