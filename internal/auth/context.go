package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	sidKey
)

// WithSession stores sid and sess the way Require does.
func WithSession(ctx context.Context, sid string, sess *domain.Session) context.Context {
	ctx = context.WithValue(ctx, sidKey, sid)
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the session stored by Require, nil outside it.
func SessionFrom(ctx context.Context) *domain.Session {
	sess, _ := ctx.Value(sessionKey).(*domain.Session)
	return sess
}

// SIDFrom returns the browser session id stored by Require.
func SIDFrom(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey).(string)
	return sid
}

// SessionID reads the browser session id cookie.
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// SetSessionCookie stores sid in an HttpOnly cookie.
func (g *Gate) SetSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(g.cookies.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   g.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (g *Gate) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FlowID reads the pending sign-in flow cookie.
func FlowID(r *http.Request) string {
	c, err := r.Cookie(FlowCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetFlowCookie remembers the sign-in flow for the callback.
func (g *Gate) SetFlowCookie(w http.ResponseWriter, flowID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookie,
		Value:    flowID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearFlowCookie expires the flow cookie.
func (g *Gate) ClearFlowCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
