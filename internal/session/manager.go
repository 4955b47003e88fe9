package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

const (
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultFlowTTL        = 10 * time.Minute
	DefaultRefreshSkew    = 60 * time.Second
	DefaultRefreshTimeout = 15 * time.Second
)

// Options tunes a Manager. Zero values take the defaults above.
type Options struct {
	SessionTTL  time.Duration
	FlowTTL     time.Duration
	RefreshSkew time.Duration
	Now         func() time.Time

	// RefreshTimeout bounds the refresh shared by concurrent callers; it
	// does not end with any single caller's request.
	RefreshTimeout time.Duration
}

// SignIn is the hand-off produced by SignInWithOAuth.
type SignIn struct {
	URL    string // provider authorize URL
	FlowID string // key of the stored PKCE verifier
}

// SweepResult summarises one pass over stored sessions.
type SweepResult struct {
	Checked   int
	Refreshed int
	Expired   int
}

type outcome int

const (
	outcomeValid outcome = iota
	outcomeRefreshed
	outcomeExpired
)

type refreshResult struct {
	session *domain.Session
	outcome outcome
}

// Manager is the session store client used by the gate, the views and the
// background sweeper.
type Manager struct {
	identity Identity
	store    Store
	broker   Broker
	logger   logger.Logger
	opts     Options
	group    singleflight.Group
}

// NewManager wires a Manager.
func NewManager(identity Identity, store Store, broker Broker, log logger.Logger, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.FlowTTL <= 0 {
		opts.FlowTTL = DefaultFlowTTL
	}
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = DefaultRefreshSkew
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		identity: identity,
		store:    store,
		broker:   broker,
		logger:   log,
		opts:     opts,
	}
}

// GetSession returns the session for sid, or nil when there is none. A
// session close to expiry is refreshed first.
func (m *Manager) GetSession(ctx context.Context, sid string) (*domain.Session, error) {
	if sid == "" {
		return nil, nil
	}

	sess, err := m.store.GetSession(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if !sess.ExpiresWithin(m.opts.Now(), m.opts.RefreshSkew) {
		return sess, nil
	}

	res, err := m.refresh(ctx, sid)
	if err != nil {
		return nil, err
	}
	return res.session, nil
}

// refresh renews the session for sid. Concurrent callers for the same sid
// share one remote call; refresh tokens are single use. The shared call is
// detached from the caller that started it, so one cancelled request cannot
// fail the others; each caller still stops waiting when its own ctx ends.
func (m *Manager) refresh(ctx context.Context, sid string) (refreshResult, error) {
	ch := m.group.DoChan(sid, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.RefreshTimeout)
		defer cancel()
		return m.doRefresh(shared, sid)
	})

	select {
	case <-ctx.Done():
		return refreshResult{}, fmt.Errorf("refresh session: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return refreshResult{}, r.Err
		}
		res, _ := r.Val.(refreshResult)
		return res, nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, sid string) (refreshResult, error) {
	current, err := m.store.GetSession(ctx, sid)
	if err != nil {
		return refreshResult{}, fmt.Errorf("load session: %w", err)
	}
	if current == nil {
		return refreshResult{outcome: outcomeExpired}, nil
	}

	now := m.opts.Now()
	if !current.ExpiresWithin(now, m.opts.RefreshSkew) {
		return refreshResult{session: current, outcome: outcomeValid}, nil
	}

	fresh, err := m.identity.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return refreshResult{}, fmt.Errorf("refresh session: %w", ctx.Err())
		}
		if !current.Expired(now) {
			m.logger.Warn("session refresh failed, keeping current token",
				logger.String("user_id", current.User.ID),
				logger.Time("expires_at", current.ExpiresAt),
				logger.Error(err))
			return refreshResult{session: current, outcome: outcomeValid}, nil
		}

		m.logger.Warn("session expired and refresh failed, signing out",
			logger.String("user_id", current.User.ID),
			logger.Error(err))
		m.destroy(ctx, sid)
		return refreshResult{outcome: outcomeExpired}, nil
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}
	if err := m.store.SaveSession(ctx, sid, fresh, m.opts.SessionTTL); err != nil {
		return refreshResult{}, fmt.Errorf("save refreshed session: %w", err)
	}

	m.publish(ctx, sid, domain.EventTokenRefreshed, fresh)
	m.logger.Debug("session refreshed",
		logger.String("user_id", fresh.User.ID),
		logger.Time("expires_at", fresh.ExpiresAt))

	return refreshResult{session: fresh, outcome: outcomeRefreshed}, nil
}

// SignInWithOAuth starts a PKCE flow and returns where to send the browser.
func (m *Manager) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (SignIn, error) {
	verifier := oauth2.GenerateVerifier()
	flowID := uuid.NewString()

	if err := m.store.SaveFlow(ctx, flowID, verifier, m.opts.FlowTTL); err != nil {
		return SignIn{}, fmt.Errorf("save sign-in flow: %w", err)
	}

	return SignIn{
		URL:    m.identity.AuthorizeURL(provider, redirectTo, oauth2.S256ChallengeFromVerifier(verifier)),
		FlowID: flowID,
	}, nil
}

// CompleteSignIn exchanges the callback code for a session and stores it
// under a new browser session id.
func (m *Manager) CompleteSignIn(ctx context.Context, flowID, code string) (string, *domain.Session, error) {
	if flowID == "" {
		return "", nil, domain.ErrFlowNotFound
	}
	if code == "" {
		return "", nil, errors.New("complete sign-in: missing code")
	}

	verifier, err := m.store.TakeFlow(ctx, flowID)
	if err != nil {
		return "", nil, fmt.Errorf("complete sign-in: %w", err)
	}

	sess, err := m.identity.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return "", nil, fmt.Errorf("complete sign-in: %w", err)
	}

	sid := uuid.NewString()
	if err := m.store.SaveSession(ctx, sid, sess, m.opts.SessionTTL); err != nil {
		return "", nil, fmt.Errorf("save session: %w", err)
	}

	m.publish(ctx, sid, domain.EventSignedIn, sess)
	m.logger.Info("user signed in",
		logger.String("user_id", sess.User.ID))

	return sid, sess, nil
}

// SignOut revokes the remote session (best effort), deletes it locally and
// notifies subscribers. The local session is gone even when an error is
// returned.
func (m *Manager) SignOut(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}

	var remoteErr error
	sess, err := m.store.GetSession(ctx, sid)
	if err != nil {
		remoteErr = fmt.Errorf("load session: %w", err)
	} else if sess != nil {
		if err := m.identity.SignOut(ctx, sess.AccessToken); err != nil {
			remoteErr = err
		}
	}

	delErr := m.store.DeleteSession(ctx, sid)
	if delErr != nil {
		delErr = fmt.Errorf("delete session: %w", delErr)
	}

	m.publish(ctx, sid, domain.EventSignedOut, nil)
	if sess != nil {
		m.logger.Info("user signed out",
			logger.String("user_id", sess.User.ID))
	}

	return errors.Join(remoteErr, delErr)
}

// OnSessionChange calls fn for every event on sid until the subscription
// is released.
func (m *Manager) OnSessionChange(ctx context.Context, sid string, fn Handler) (*Subscription, error) {
	cancel, err := m.broker.Subscribe(ctx, sid, fn)
	if err != nil {
		return nil, fmt.Errorf("subscribe to session events: %w", err)
	}
	return NewSubscription(cancel), nil
}

// Sweep walks every stored session, refreshing those close to expiry and
// removing those that can no longer be refreshed.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	ids, err := m.store.SessionIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list sessions: %w", err)
	}

	now := m.opts.Now()
	for _, sid := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		sess, err := m.store.GetSession(ctx, sid)
		if err != nil {
			m.logger.Warn("sweep: failed to load session", logger.Error(err))
			continue
		}
		if sess == nil || !sess.ExpiresWithin(now, m.opts.RefreshSkew) {
			continue
		}

		res, err := m.refresh(ctx, sid)
		if err != nil {
			m.logger.Warn("sweep: refresh failed", logger.Error(err))
			continue
		}
		switch res.outcome {
		case outcomeRefreshed:
			result.Refreshed++
		case outcomeExpired:
			result.Expired++
		}
	}

	return result, nil
}

func (m *Manager) destroy(ctx context.Context, sid string) {
	if err := m.store.DeleteSession(ctx, sid); err != nil {
		m.logger.Warn("failed to delete session", logger.Error(err))
	}
	m.publish(ctx, sid, domain.EventSignedOut, nil)
}

func (m *Manager) publish(ctx context.Context, sid string, t domain.EventType, sess *domain.Session) {
	ev := domain.SessionEvent{Type: t, Session: sess, At: m.opts.Now()}
	if err := m.broker.Publish(ctx, sid, ev); err != nil {
		m.logger.Warn("failed to publish session event",
			logger.String("event", string(t)),
			logger.Error(err))
	}
}
