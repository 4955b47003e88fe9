package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

func TestKeys(t *testing.T) {
	if got := SessionKey("abc"); got != "marktrabit:session:abc" {
		t.Errorf("SessionKey() = %q", got)
	}
	if got := EventsChannel("abc"); got != "marktrabit:events:abc" {
		t.Errorf("EventsChannel() = %q", got)
	}

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "marktrabit:session:abc", want: "abc"},
		{key: "marktrabit:session:", wantErr: true},
		{key: "marktrabit:flow:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ExtractSessionID(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractSessionID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractSessionID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToEventDropsSessionOnSignOut(t *testing.T) {
	u := &domain.User{ID: "u1", Email: "a@b.c"}

	ev := toEvent(wireEvent{Type: domain.EventSignedOut, User: u, AtUTC: 1})
	if ev.Session != nil {
		t.Error("SIGNED_OUT must carry a nil session")
	}

	ev = toEvent(wireEvent{Type: domain.EventTokenRefreshed, User: u})
	if ev.Session == nil || ev.Session.User.Email != "a@b.c" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Session.AccessToken != "" {
		t.Error("tokens must not travel over pub/sub")
	}
}

// newTestClient connects to MARKTRABIT_TEST_REDIS_ADDR or skips.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("MARKTRABIT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MARKTRABIT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return client
}

func TestStoreIntegration(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client)
	ctx := context.Background()
	sid := uuid.NewString()
	t.Cleanup(func() { _ = store.DeleteSession(ctx, sid) })

	sess := &domain.Session{AccessToken: "at", User: domain.User{ID: "u1"}, ExpiresAt: time.Now().Add(time.Hour).UTC()}
	if err := store.SaveSession(ctx, sid, sess, time.Minute); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	got, err := store.GetSession(ctx, sid)
	if err != nil || got == nil || got.AccessToken != "at" {
		t.Fatalf("GetSession() = %+v, %v", got, err)
	}

	ids, err := store.SessionIDs(ctx)
	if err != nil {
		t.Fatalf("SessionIDs() error = %v", err)
	}
	found := false
	for _, id := range ids {
		found = found || id == sid
	}
	if !found {
		t.Errorf("SessionIDs() missing %s", sid)
	}

	flow := uuid.NewString()
	_ = store.SaveFlow(ctx, flow, "ver", time.Minute)
	if v, err := store.TakeFlow(ctx, flow); err != nil || v != "ver" {
		t.Errorf("TakeFlow() = %q, %v", v, err)
	}
	if _, err := store.TakeFlow(ctx, flow); !errors.Is(err, domain.ErrFlowNotFound) {
		t.Errorf("second TakeFlow() error = %v", err)
	}

	view := domain.NewViewState()
	view.Prepend(domain.Bookmark{ID: "1", Title: "Docs"})
	_ = store.SaveView(ctx, sid, view, time.Minute)
	if v, err := store.LoadView(ctx, sid); err != nil || v == nil || v.Count() != 1 {
		t.Errorf("LoadView() = %+v, %v", v, err)
	}

	_ = store.DeleteSession(ctx, sid)
	if v, _ := store.LoadView(ctx, sid); v != nil {
		t.Error("DeleteSession() should drop the view state too")
	}
}

func TestBrokerIntegration(t *testing.T) {
	client := newTestClient(t)
	broker := NewBroker(client, logger.New("error", false))
	ctx := context.Background()
	sid := uuid.NewString()

	got := make(chan domain.SessionEvent, 1)
	cancel, err := broker.Subscribe(ctx, sid, func(ev domain.SessionEvent) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	if err := broker.Publish(ctx, sid, domain.SessionEvent{Type: domain.EventSignedOut, At: time.Now()}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case ev := <-got:
		if ev.Type != domain.EventSignedOut || ev.Session != nil {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	cancel()
}
