package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// RejectFunc is told about remote rows that failed validation.
type RejectFunc func(row map[string]any, err error)

// Bookmarks is the PostgREST-backed bookmark repository. Row-level security
// on the service scopes rows to the bearer's user; the user_id filter is
// sent anyway so a misconfigured policy cannot leak rows into the view.
type Bookmarks struct {
	client *Client
	reject RejectFunc
}

// NewBookmarks creates a repository on top of c. reject may be nil.
func NewBookmarks(c *Client, reject RejectFunc) *Bookmarks {
	if reject == nil {
		reject = func(map[string]any, error) {}
	}
	return &Bookmarks{client: c, reject: reject}
}

func (b *Bookmarks) path() string {
	return restPrefix + "/" + url.PathEscape(b.client.table)
}

// List returns every row of the session's user, newest first.
func (b *Bookmarks) List(ctx context.Context, sess *domain.Session) ([]domain.Bookmark, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+sess.User.ID)
	q.Set("order", "created_at.desc,id.desc")

	var rows []map[string]any
	if err := b.client.do(ctx, request{
		method: http.MethodGet,
		path:   b.path(),
		query:  q,
		token:  sess.AccessToken,
	}, &rows); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	return b.parseRows(rows), nil
}

// Insert creates one row owned by the session's user and returns it as stored.
func (b *Bookmarks) Insert(ctx context.Context, sess *domain.Session, draft domain.Draft) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.ErrUnauthenticated
	}

	record := map[string]string{
		"title":   draft.Title,
		"url":     draft.URL,
		"user_id": sess.User.ID,
	}

	var rows []map[string]any
	if err := b.client.do(ctx, request{
		method:  http.MethodPost,
		path:    b.path(),
		token:   sess.AccessToken,
		body:    []map[string]string{record},
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows); err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}

	if len(rows) != 1 {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: expected 1 row, got %d", len(rows))
	}
	created, err := domain.ParseRecord(rows[0])
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return created, nil
}

// Delete removes the row with id. Deleting a missing id succeeds.
func (b *Bookmarks) Delete(ctx context.Context, sess *domain.Session, id string) error {
	if sess == nil {
		return domain.ErrUnauthenticated
	}
	if id == "" {
		return errors.New("delete bookmark: empty id")
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+sess.User.ID)

	if err := b.client.do(ctx, request{
		method: http.MethodDelete,
		path:   b.path(),
		query:  q,
		token:  sess.AccessToken,
	}, nil); err != nil {
		return fmt.Errorf("delete bookmark %s: %w", id, err)
	}
	return nil
}

func (b *Bookmarks) parseRows(rows []map[string]any) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(rows))
	for _, row := range rows {
		bm, err := domain.ParseRecord(row)
		if err != nil {
			b.reject(row, err)
			continue
		}
		out = append(out, bm)
	}
	return out
}
