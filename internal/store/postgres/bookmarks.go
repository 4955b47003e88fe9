package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

const (
	listQuery = `SELECT id, user_id, title, url, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	insertQuery = `INSERT INTO bookmarks (user_id, title, url)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, url, created_at`

	deleteQuery = `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`
)

type bookmarkRow struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

func (r bookmarkRow) toDomain() domain.Bookmark {
	return domain.Bookmark{
		ID:        strconv.FormatInt(r.ID, 10),
		UserID:    r.UserID,
		Title:     r.Title,
		URL:       r.URL,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// Bookmarks implements the repository on a pgx pool. Every statement is
// filtered by the session's user id.
type Bookmarks struct {
	pool *pgxpool.Pool
}

// NewBookmarks creates the repository.
func NewBookmarks(pool *pgxpool.Pool) *Bookmarks {
	return &Bookmarks{pool: pool}
}

// List returns the user's rows newest first.
func (b *Bookmarks) List(ctx context.Context, sess *domain.Session) ([]domain.Bookmark, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}

	var rows []bookmarkRow
	if err := pgxscan.Select(ctx, b.pool, &rows, listQuery, sess.User.ID); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	out := make([]domain.Bookmark, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Insert creates a row owned by the session's user.
func (b *Bookmarks) Insert(ctx context.Context, sess *domain.Session, draft domain.Draft) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.ErrUnauthenticated
	}

	var r bookmarkRow
	if err := pgxscan.Get(ctx, b.pool, &r, insertQuery, sess.User.ID, draft.Title, draft.URL); err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return r.toDomain(), nil
}

// Delete removes the user's row with id. Ids that are not integers cannot
// exist in this table and are ignored.
func (b *Bookmarks) Delete(ctx context.Context, sess *domain.Session, id string) error {
	if sess == nil {
		return domain.ErrUnauthenticated
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}

	if _, err := b.pool.Exec(ctx, deleteQuery, n, sess.User.ID); err != nil {
		return fmt.Errorf("delete bookmark %s: %w", id, err)
	}
	return nil
}

// Ping checks the pool, used by readiness probes.
func (b *Bookmarks) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}
