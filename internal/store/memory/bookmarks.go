package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// Bookmarks is an in-process bookmark table scoped by user id. It plays the
// remote data service in development and in tests.
type Bookmarks struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[string][]domain.Bookmark // user id -> rows, insertion order
	now    func() time.Time
}

// NewBookmarks creates an empty table.
func NewBookmarks() *Bookmarks {
	return &Bookmarks{
		rows: make(map[string][]domain.Bookmark),
		now:  time.Now,
	}
}

// SetClock overrides the created_at source. Tests only.
func (b *Bookmarks) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = now
}

// List returns the user's rows, newest first.
func (b *Bookmarks) List(_ context.Context, sess *domain.Session) ([]domain.Bookmark, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := append([]domain.Bookmark{}, b.rows[sess.User.ID]...)
	domain.SortNewestFirst(out)
	return out, nil
}

// Insert assigns an id and created_at and stores the row.
func (b *Bookmarks) Insert(_ context.Context, sess *domain.Session, draft domain.Draft) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, domain.ErrUnauthenticated
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	row := domain.Bookmark{
		ID:        strconv.FormatInt(b.nextID, 10),
		UserID:    sess.User.ID,
		Title:     draft.Title,
		URL:       draft.URL,
		CreatedAt: b.now().UTC(),
	}
	b.rows[sess.User.ID] = append(b.rows[sess.User.ID], row)
	return row, nil
}

// Delete removes the user's row with id. Unknown ids succeed.
func (b *Bookmarks) Delete(_ context.Context, sess *domain.Session, id string) error {
	if sess == nil {
		return domain.ErrUnauthenticated
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rows := b.rows[sess.User.ID]
	kept := rows[:0]
	for _, r := range rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	b.rows[sess.User.ID] = kept
	return nil
}

// BookmarkCount returns the number of rows across all users.
func (b *Bookmarks) BookmarkCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, rows := range b.rows {
		n += len(rows)
	}
	return n
}
