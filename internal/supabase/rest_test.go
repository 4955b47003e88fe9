package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

func TestListBookmarks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/bookmarks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if q.Get("user_id") != "eq.u1" || q.Get("order") != "created_at.desc,id.desc" || q.Get("select") != "*" {
			t.Errorf("unexpected query %v", q)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `[
			{"id":2,"user_id":"u1","title":"News","url":"https://news.io","created_at":"2024-05-02T10:00:00.123456+00:00"},
			{"id":"x","user_id":"u1","title":"","url":"https://bad.io","created_at":"2024-05-01T10:00:00Z"},
			{"id":1,"user_id":"u1","title":"Docs","url":"https://docs.io","created_at":"2024-05-01T10:00:00+00:00"}
		]`)
	})

	var rejected int
	repo := NewBookmarks(c, func(row map[string]any, err error) {
		rejected++
		if !errors.Is(err, domain.ErrMalformedRecord) {
			t.Errorf("reject err = %v", err)
		}
	})

	got, err := repo.List(context.Background(), testSession())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("unexpected list %+v", got)
	}
	if rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
}

func TestInsertBookmark(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		var body []map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) != 1 {
			t.Errorf("bad body: %v %v", body, err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body[0]["user_id"] != "u1" || body[0]["title"] != "Docs" {
			t.Errorf("unexpected record %v", body[0])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":7,"user_id":"u1","title":"Docs","url":"https://docs.io","created_at":"2024-05-01T10:00:00Z"}]`)
	})

	created, err := NewBookmarks(c, nil).Insert(context.Background(), testSession(), domain.Draft{Title: "Docs", URL: "https://docs.io"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if created.ID != "7" || created.UserID != "u1" {
		t.Errorf("unexpected bookmark %+v", created)
	}
}

func TestInsertBookmarkRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"new row violates row-level security policy"}`)
	})

	_, err := NewBookmarks(c, nil).Insert(context.Background(), testSession(), domain.Draft{Title: "a", URL: "b"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "42501" {
		t.Fatalf("expected APIError 42501, got %v", err)
	}
}

func TestDeleteBookmark(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodDelete || q.Get("id") != "eq.5" || q.Get("user_id") != "eq.u1" {
			t.Errorf("unexpected request %s %v", r.Method, q)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	repo := NewBookmarks(c, nil)
	if err := repo.Delete(context.Background(), testSession(), "5"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(context.Background(), testSession(), ""); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestRepositoryRequiresSession(t *testing.T) {
	repo := NewBookmarks(New(Options{BaseURL: "http://unused"}), nil)
	ctx := context.Background()

	if _, err := repo.List(ctx, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("List(nil) err = %v", err)
	}
	if _, err := repo.Insert(ctx, nil, domain.Draft{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Insert(nil) err = %v", err)
	}
	if err := repo.Delete(ctx, nil, "1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Delete(nil) err = %v", err)
	}
}
