package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/store/memory"
)

func TestGarbageCollector_Collect(t *testing.T) {
	log := logger.New("error", false)
	store := memory.NewStore()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	sess := &domain.Session{AccessToken: "a", User: domain.User{ID: "u1"}}
	_ = store.SaveSession(ctx, "active", sess, time.Hour)
	_ = store.SaveSession(ctx, "short", sess, time.Minute)
	_ = store.SaveFlow(ctx, "flow", "verifier", time.Minute)

	gc := NewGarbageCollector(store, log, time.Hour)

	// Nothing is expired yet
	if removed := gc.Collect(ctx); removed != 0 {
		t.Fatalf("Collect() removed %d entries, want 0", removed)
	}

	// Move past the short TTLs
	now = now.Add(10 * time.Minute)

	if removed := gc.Collect(ctx); removed != 2 {
		t.Errorf("Collect() removed %d entries, want 2", removed)
	}

	if store.Count() != 1 {
		t.Errorf("Expected 1 session after GC, got %d", store.Count())
	}

	if got, _ := store.GetSession(ctx, "active"); got == nil {
		t.Error("Active session was incorrectly removed")
	}
}
