package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/store/memory"
)

type fakeIdentity struct {
	mu         sync.Mutex
	refreshErr error
	signOutErr error
	refreshes  int
	signOuts   int
	lastVerif  string
	expiresIn  time.Duration

	// When set, Refresh closes entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeIdentity) AuthorizeURL(provider, redirectTo, challenge string) string {
	q := url.Values{"provider": {provider}, "redirect_to": {redirectTo}, "code_challenge": {challenge}}
	return "https://id.example/authorize?" + q.Encode()
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code, verifier string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if code == "bad" {
		return nil, errors.New("invalid code")
	}
	f.lastVerif = verifier
	return &domain.Session{
		AccessToken:  "at-" + code,
		RefreshToken: "rt-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.User{ID: "u1", Email: "a@b.c"},
	}, nil
}

func (f *fakeIdentity) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if f.release != nil {
		close(f.entered)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	in := f.expiresIn
	if in == 0 {
		in = time.Hour
	}
	return &domain.Session{
		AccessToken: "refreshed",
		ExpiresAt:   time.Now().Add(in),
		User:        domain.User{ID: "u1"},
	}, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signOuts++
	return f.signOutErr
}

type recorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *recorder) handle(ev domain.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newTestManager(id *fakeIdentity) (*Manager, *memory.Store, *MemoryBroker) {
	store := memory.NewStore()
	broker := NewMemoryBroker()
	m := NewManager(id, store, broker, logger.New("error", false), Options{})
	return m, store, broker
}

func TestSignInFlow(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, store, _ := newTestManager(id)

	signIn, err := m.SignInWithOAuth(ctx, "google", "http://localhost/auth/callback")
	if err != nil {
		t.Fatalf("SignInWithOAuth() error = %v", err)
	}
	if signIn.FlowID == "" || !strings.Contains(signIn.URL, "provider=google") || !strings.Contains(signIn.URL, "code_challenge=") {
		t.Fatalf("unexpected sign-in %+v", signIn)
	}

	sid, sess, err := m.CompleteSignIn(ctx, signIn.FlowID, "abc")
	if err != nil {
		t.Fatalf("CompleteSignIn() error = %v", err)
	}
	if sid == "" || sess.AccessToken != "at-abc" {
		t.Errorf("unexpected result sid=%q session=%+v", sid, sess)
	}
	if id.lastVerif == "" {
		t.Error("verifier should be sent to the exchange")
	}

	stored, _ := store.GetSession(ctx, sid)
	if stored == nil || stored.User.ID != "u1" {
		t.Errorf("session not stored: %+v", stored)
	}

	// The flow is single use
	if _, _, err := m.CompleteSignIn(ctx, signIn.FlowID, "abc"); !errors.Is(err, domain.ErrFlowNotFound) {
		t.Errorf("reused flow error = %v, want ErrFlowNotFound", err)
	}
}

func TestCompleteSignInErrors(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&fakeIdentity{})

	if _, _, err := m.CompleteSignIn(ctx, "", "code"); !errors.Is(err, domain.ErrFlowNotFound) {
		t.Errorf("empty flow error = %v", err)
	}

	signIn, _ := m.SignInWithOAuth(ctx, "google", "http://x/cb")
	if _, _, err := m.CompleteSignIn(ctx, signIn.FlowID, "bad"); err == nil {
		t.Error("expected exchange error")
	}
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(&fakeIdentity{})

	if got, err := m.GetSession(ctx, ""); got != nil || err != nil {
		t.Errorf("GetSession(\"\") = %v, %v", got, err)
	}
	if got, err := m.GetSession(ctx, "unknown"); got != nil || err != nil {
		t.Errorf("GetSession(unknown) = %v, %v", got, err)
	}

	valid := &domain.Session{AccessToken: "ok", ExpiresAt: time.Now().Add(time.Hour)}
	_ = store.SaveSession(ctx, "sid", valid, time.Hour)
	got, err := m.GetSession(ctx, "sid")
	if err != nil || got == nil || got.AccessToken != "ok" {
		t.Errorf("GetSession(sid) = %+v, %v", got, err)
	}
}

func TestGetSessionRefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, store, broker := newTestManager(id)

	_ = store.SaveSession(ctx, "sid", &domain.Session{
		AccessToken:  "old",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(10 * time.Second),
	}, time.Hour)

	rec := &recorder{}
	cancel, _ := broker.Subscribe(ctx, "sid", rec.handle)
	defer cancel()

	got, err := m.GetSession(ctx, "sid")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.AccessToken != "refreshed" {
		t.Errorf("AccessToken = %q, want refreshed", got.AccessToken)
	}
	if got.RefreshToken != "rt" {
		t.Errorf("refresh token should carry over when the service omits it, got %q", got.RefreshToken)
	}
	if types := rec.types(); len(types) != 1 || types[0] != domain.EventTokenRefreshed {
		t.Errorf("events = %v, want [TOKEN_REFRESHED]", types)
	}
}

func TestGetSessionExpiredRefreshFails(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{refreshErr: errors.New("invalid refresh token")}
	m, store, broker := newTestManager(id)

	_ = store.SaveSession(ctx, "sid", &domain.Session{
		AccessToken: "old",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}, time.Hour)

	rec := &recorder{}
	cancel, _ := broker.Subscribe(ctx, "sid", rec.handle)
	defer cancel()

	got, err := m.GetSession(ctx, "sid")
	if err != nil || got != nil {
		t.Fatalf("GetSession() = %+v, %v; want nil, nil", got, err)
	}
	if stored, _ := store.GetSession(ctx, "sid"); stored != nil {
		t.Error("session should be destroyed")
	}
	if types := rec.types(); len(types) != 1 || types[0] != domain.EventSignedOut {
		t.Errorf("events = %v, want [SIGNED_OUT]", types)
	}
}

func TestGetSessionRefreshFailsBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{refreshErr: errors.New("temporarily unavailable")}
	m, store, _ := newTestManager(id)

	_ = store.SaveSession(ctx, "sid", &domain.Session{
		AccessToken: "old",
		ExpiresAt:   time.Now().Add(20 * time.Second),
	}, time.Hour)

	got, err := m.GetSession(ctx, "sid")
	if err != nil || got == nil || got.AccessToken != "old" {
		t.Errorf("GetSession() = %+v, %v; want the current session", got, err)
	}
}

func TestConcurrentRefreshSharesOneCall(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, store, _ := newTestManager(id)

	_ = store.SaveSession(ctx, "sid", &domain.Session{
		AccessToken:  "old",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Second),
	}, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.GetSession(ctx, "sid"); err != nil {
				t.Errorf("GetSession() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if id.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", id.refreshes)
	}
}

func TestRefreshSurvivesFirstCallerCancel(t *testing.T) {
	id := &fakeIdentity{entered: make(chan struct{}), release: make(chan struct{})}
	m, store, _ := newTestManager(id)

	_ = store.SaveSession(context.Background(), "sid", &domain.Session{
		AccessToken:  "old",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Second),
	}, time.Hour)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.GetSession(firstCtx, "sid")
		firstErr <- err
	}()
	<-id.entered

	type result struct {
		sess *domain.Session
		err  error
	}
	second := make(chan result, 1)
	go func() {
		sess, err := m.GetSession(context.Background(), "sid")
		second <- result{sess, err}
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}

	close(id.release)
	select {
	case r := <-second:
		if r.err != nil || r.sess == nil || r.sess.AccessToken != "refreshed" {
			t.Errorf("second caller = %+v, %v; want the refreshed session", r.sess, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}

	if stored, _ := store.GetSession(context.Background(), "sid"); stored == nil || stored.AccessToken != "refreshed" {
		t.Errorf("stored session = %+v, want the refreshed one", stored)
	}
}

func TestSignOut(t *testing.T) {
	tests := []struct {
		name    string
		remote  error
		wantErr bool
	}{
		{name: "remote ok", remote: nil, wantErr: false},
		{name: "remote fails", remote: errors.New("network down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			id := &fakeIdentity{signOutErr: tt.remote}
			m, store, broker := newTestManager(id)

			_ = store.SaveSession(ctx, "sid", &domain.Session{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}, time.Hour)
			rec := &recorder{}
			cancel, _ := broker.Subscribe(ctx, "sid", rec.handle)
			defer cancel()

			err := m.SignOut(ctx, "sid")
			if (err != nil) != tt.wantErr {
				t.Errorf("SignOut() error = %v, wantErr %v", err, tt.wantErr)
			}
			if stored, _ := store.GetSession(ctx, "sid"); stored != nil {
				t.Error("local session must be deleted regardless of remote outcome")
			}
			if types := rec.types(); len(types) != 1 || types[0] != domain.EventSignedOut {
				t.Errorf("events = %v, want [SIGNED_OUT]", types)
			}
		})
	}
}

func TestOnSessionChangeUnsubscribeOnce(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&fakeIdentity{})

	rec, other := &recorder{}, &recorder{}
	sub, err := m.OnSessionChange(ctx, "sid", rec.handle)
	if err != nil {
		t.Fatalf("OnSessionChange() error = %v", err)
	}
	otherSub, _ := m.OnSessionChange(ctx, "sid", other.handle)
	defer otherSub.Unsubscribe()

	_ = m.SignOut(ctx, "sid")
	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = m.SignOut(ctx, "sid")

	if len(rec.types()) != 1 {
		t.Errorf("released handler should not receive events, got %v", rec.types())
	}
	if len(other.types()) != 2 {
		t.Errorf("double unsubscribe must not release other subscribers, got %v", other.types())
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, store, _ := newTestManager(id)

	_ = store.SaveSession(ctx, "fresh", &domain.Session{ExpiresAt: time.Now().Add(time.Hour)}, time.Hour)
	_ = store.SaveSession(ctx, "stale", &domain.Session{RefreshToken: "rt", ExpiresAt: time.Now().Add(5 * time.Second)}, time.Hour)

	res, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Checked != 2 || res.Refreshed != 1 || res.Expired != 0 {
		t.Errorf("Sweep() = %+v, want checked=2 refreshed=1", res)
	}

	id.refreshErr = errors.New("revoked")
	_ = store.SaveSession(ctx, "dead", &domain.Session{ExpiresAt: time.Now().Add(-time.Second)}, time.Hour)

	res, _ = m.Sweep(ctx)
	if res.Expired != 1 {
		t.Errorf("Sweep() = %+v, want expired=1", res)
	}
	if got, _ := store.GetSession(ctx, "dead"); got != nil {
		t.Error("dead session should be removed")
	}
}
