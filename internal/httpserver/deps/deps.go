package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/bookmarks"
	"github.com/MrSnakeDoc/marktrabit/internal/dashboard"
	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/session"
	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
)

// SignIn is the part of the session manager the login and callback
// handlers need.
type SignIn interface {
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (session.SignIn, error)
	CompleteSignIn(ctx context.Context, flowID, code string) (string, *domain.Session, error)
}

// Check is a named readiness probe.
type Check struct {
	Name     string
	Critical bool // a failing critical check makes /readyz answer 503
	Ping     func(ctx context.Context) error
}

// Presence lists which settings are configured, never their values.
type Presence map[string]bool

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed to access the server
	AllowedCIDRS   []string         // IPs allowed to access ops endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	AllowedOrigins []string         // CORS origins for /api
	RateLimit      int              // requests per minute per client IP on login and /api

	PublicURL       string        // origin used to build the OAuth callback, derived from the request when empty
	OAuthProvider   string        // identity provider passed to the authorize endpoint
	FlowTTL         time.Duration // lifetime of the flow cookie
	CallbackTimeout time.Duration // max wait for the code exchange
	RequestTimeout  time.Duration // per-request timeout on pages and /api

	Gate      *auth.Gate
	SignIn    SignIn
	Dashboard *dashboard.Controller
	Bookmarks bookmarks.Repository // JSON API
	Metrics   *telemetry.Metrics
	Checks    []Check  // readiness probes
	Presence  Presence // for /debug

	Closing <-chan struct{} // closed when the server starts shutting down; ends event streams
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
