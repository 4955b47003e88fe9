package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

func TestRowToDomain(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	got := bookmarkRow{ID: 42, UserID: "u1", Title: "Docs", URL: "https://docs.io", CreatedAt: at}.toDomain()

	if got.ID != "42" {
		t.Errorf("ID = %q, want 42", got.ID)
	}
	if got.CreatedAt.Location() != time.UTC || !got.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v in UTC", got.CreatedAt, at)
	}
}

func TestBookmarksIntegration(t *testing.T) {
	dsn := os.Getenv("MARKTRABIT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("MARKTRABIT_TEST_DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := NewBookmarks(pool)
	alice := &domain.Session{User: domain.User{ID: uuid.NewString()}}
	bob := &domain.Session{User: domain.User{ID: uuid.NewString()}}

	docs, err := repo.Insert(ctx, alice, domain.Draft{Title: "Docs", URL: "https://docs.io"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	news, _ := repo.Insert(ctx, alice, domain.Draft{Title: "News", URL: "https://news.io"})

	list, err := repo.List(ctx, alice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != news.ID || list[1].ID != docs.ID {
		t.Errorf("List() = %+v, want [news docs]", list)
	}

	if other, _ := repo.List(ctx, bob); len(other) != 0 {
		t.Errorf("List() for another user = %+v, want empty", other)
	}

	_ = repo.Delete(ctx, bob, docs.ID)
	_ = repo.Delete(ctx, alice, "not-a-number")
	if err := repo.Delete(ctx, alice, docs.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	list, _ = repo.List(ctx, alice)
	if len(list) != 1 || list[0].ID != news.ID {
		t.Errorf("List() after delete = %+v", list)
	}

	_ = repo.Delete(ctx, alice, news.ID)
}
