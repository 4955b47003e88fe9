package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

func TestBookmarksScopedByUser(t *testing.T) {
	ctx := context.Background()
	table := NewBookmarks()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	table.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	alice := &domain.Session{User: domain.User{ID: "alice"}}
	bob := &domain.Session{User: domain.User{ID: "bob"}}

	first, _ := table.Insert(ctx, alice, domain.Draft{Title: "Docs", URL: "https://docs.io"})
	second, _ := table.Insert(ctx, alice, domain.Draft{Title: "News", URL: "https://news.io"})
	_, _ = table.Insert(ctx, bob, domain.Draft{Title: "Bob", URL: "https://bob.io"})

	if first.ID != "1" || second.ID != "2" {
		t.Errorf("ids = %s,%s, want 1,2", first.ID, second.ID)
	}

	list, err := table.List(ctx, alice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "2" || list[1].ID != "1" {
		t.Errorf("List() = %+v, want [2 1]", list)
	}

	// Bob cannot delete Alice's row
	_ = table.Delete(ctx, bob, "1")
	if list, _ := table.List(ctx, alice); len(list) != 2 {
		t.Errorf("cross-user delete removed a row")
	}

	_ = table.Delete(ctx, alice, "1")
	if list, _ := table.List(ctx, alice); len(list) != 1 || list[0].ID != "2" {
		t.Errorf("List() after delete = %+v", list)
	}
	if table.BookmarkCount() != 2 {
		t.Errorf("BookmarkCount() = %d, want 2", table.BookmarkCount())
	}
}

func TestBookmarksRequireSession(t *testing.T) {
	table := NewBookmarks()
	if _, err := table.List(context.Background(), nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("List(nil) error = %v", err)
	}
}
