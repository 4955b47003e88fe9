// Package dashboard keeps the per-session view state of the bookmark page
// in step with the repository.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/bookmarks"
	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/sources/homepage"
	"github.com/MrSnakeDoc/marktrabit/internal/supabase"
)

// DefaultViewTTL is how long an idle view state is kept.
const DefaultViewTTL = 24 * time.Hour

// MsgNotAuthenticated is shown when an action finds no session.
const MsgNotAuthenticated = "Not authenticated. Please log in again."

// ViewStore persists one ViewState per browser session.
type ViewStore interface {
	LoadView(ctx context.Context, sid string) (*domain.ViewState, error)
	SaveView(ctx context.Context, sid string, v *domain.ViewState, ttl time.Duration) error
	DeleteView(ctx context.Context, sid string) error
}

// Sessions is the part of the session manager the controller needs.
type Sessions interface {
	GetSession(ctx context.Context, sid string) (*domain.Session, error)
	SignOut(ctx context.Context, sid string) error
}

// Options tunes a Controller.
type Options struct {
	ViewTTL time.Duration
	Now     func() time.Time
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int
	Failed   int
}

// Controller applies user actions to the view state of one browser session.
type Controller struct {
	repo     bookmarks.Repository
	sessions Sessions
	views    ViewStore
	mapper   *homepage.Mapper
	logger   logger.Logger
	opts     Options
	locks    *keyedMutex
}

// NewController wires a Controller.
func NewController(repo bookmarks.Repository, sessions Sessions, views ViewStore, log logger.Logger, opts Options) *Controller {
	if opts.ViewTTL <= 0 {
		opts.ViewTTL = DefaultViewTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		repo:     repo,
		sessions: sessions,
		views:    views,
		mapper:   homepage.NewMapper(),
		logger:   log,
		opts:     opts,
		locks:    newKeyedMutex(),
	}
}

// Load authenticates the view for sess and refreshes the list wholesale.
// A failed list keeps the previous rows and adds a notice.
func (c *Controller) Load(ctx context.Context, sid string, sess *domain.Session) (*domain.ViewState, error) {
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}

	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return nil, err
	}

	v.Authenticate(sess.User)
	v.BeginLoad()

	list, err := c.repo.List(ctx, sess)
	if err != nil {
		v.EndLoad()
		c.notice(v, "list", "", err)
	} else {
		v.Replace(list, c.opts.Now())
	}

	return v, c.save(ctx, sid, v)
}

// State returns the stored view without contacting the repository.
func (c *Controller) State(ctx context.Context, sid string) (*domain.ViewState, error) {
	unlock := c.locks.Lock(sid)
	defer unlock()

	return c.load(ctx, sid)
}

// Add creates a bookmark from draft. A blank title or url changes nothing.
// The acting user is always re-read from the session manager.
func (c *Controller) Add(ctx context.Context, sid string, draft domain.Draft) (*domain.ViewState, error) {
	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return nil, err
	}

	normalized, err := draft.Normalize()
	if errors.Is(err, domain.ErrEmptyDraft) {
		return v, nil
	}

	sess, err := c.currentSession(ctx, sid)
	if err != nil {
		c.expire(ctx, sid, v)
		return v, err
	}

	v.Authenticate(sess.User)
	v.Draft = draft
	if c.insert(ctx, v, sess, normalized) {
		v.ClearDraft()
	}

	return v, c.save(ctx, sid, v)
}

// Remove deletes the bookmark with id. Unknown ids leave the list as is.
func (c *Controller) Remove(ctx context.Context, sid, id string) (*domain.ViewState, error) {
	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return nil, err
	}

	sess, err := c.currentSession(ctx, sid)
	if err != nil {
		c.expire(ctx, sid, v)
		return v, err
	}
	v.Authenticate(sess.User)

	if err := c.repo.Delete(ctx, sess, id); err != nil {
		c.notice(v, "delete", id, err)
	} else {
		v.Remove(id)
	}

	return v, c.save(ctx, sid, v)
}

// Dismiss drops a notice.
func (c *Controller) Dismiss(ctx context.Context, sid, noticeID string) error {
	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return err
	}
	if !v.Dismiss(noticeID) {
		return nil
	}
	return c.save(ctx, sid, v)
}

// ClearDraft empties the add form inputs.
func (c *Controller) ClearDraft(ctx context.Context, sid string) error {
	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return err
	}
	if v.Draft == (domain.Draft{}) {
		return nil
	}
	v.ClearDraft()
	return c.save(ctx, sid, v)
}

// Import adds every link found in a Homepage services.yaml or
// bookmarks.yaml document.
func (c *Controller) Import(ctx context.Context, sid string, r io.Reader) (ImportResult, error) {
	var result ImportResult

	unlock := c.locks.Lock(sid)
	defer unlock()

	v, err := c.load(ctx, sid)
	if err != nil {
		return result, err
	}

	doc, err := homepage.Parse(r)
	if err == nil {
		var drafts []domain.Draft
		if drafts, err = c.mapper.MapDrafts(doc); err == nil {
			return c.importDrafts(ctx, sid, v, doc, drafts)
		}
	}

	c.logger.Warn("homepage import rejected", logger.Error(err))
	v.AddNotice(domain.Notice{
		ID:      uuid.NewString(),
		Kind:    domain.NoticeError,
		Message: "Error: " + err.Error(),
		Op:      "import",
		At:      c.opts.Now(),
	})
	if saveErr := c.save(ctx, sid, v); saveErr != nil {
		return result, saveErr
	}
	return result, fmt.Errorf("import: %w", err)
}

func (c *Controller) importDrafts(ctx context.Context, sid string, v *domain.ViewState, doc homepage.Document, drafts []domain.Draft) (ImportResult, error) {
	var result ImportResult

	sess, err := c.currentSession(ctx, sid)
	if err != nil {
		c.expire(ctx, sid, v)
		return result, err
	}
	v.Authenticate(sess.User)

	for _, d := range drafts {
		if ctx.Err() != nil {
			result.Failed += len(drafts) - result.Imported - result.Failed
			break
		}
		if c.insert(ctx, v, sess, d) {
			result.Imported++
		} else {
			result.Failed++
		}
	}

	v.AddNotice(domain.Notice{
		ID:      uuid.NewString(),
		Kind:    domain.NoticeInfo,
		Message: fmt.Sprintf("Imported %d bookmarks, %d failed.", result.Imported, result.Failed),
		Op:      "import",
		At:      c.opts.Now(),
	})

	c.logger.Info("homepage import finished",
		logger.String("user_id", sess.User.ID),
		logger.String("document", homepage.Describe(doc)),
		logger.Int("imported", result.Imported),
		logger.Int("failed", result.Failed))

	return result, c.save(ctx, sid, v)
}

// SignOut ends the session and forgets its view. The login location is
// returned whatever happens; failures are only logged.
func (c *Controller) SignOut(ctx context.Context, sid string) string {
	unlock := c.locks.Lock(sid)
	defer unlock()

	if err := c.sessions.SignOut(ctx, sid); err != nil {
		c.logger.Warn("sign out failed", logger.Error(err))
	}
	c.expire(ctx, sid, nil)

	return auth.LoginPath
}

// Forget drops the view state after a pushed sign-out.
func (c *Controller) Forget(ctx context.Context, sid string) {
	unlock := c.locks.Lock(sid)
	defer unlock()

	c.expire(ctx, sid, nil)
}

// expire moves v, when given, to the unauthenticated phase and deletes the
// stored view so no rows outlive the session. Callers hold the sid lock.
func (c *Controller) expire(ctx context.Context, sid string, v *domain.ViewState) {
	if v != nil {
		v.Unauthenticate()
	}
	if err := c.views.DeleteView(ctx, sid); err != nil {
		c.logger.Warn("failed to delete view state", logger.Error(err))
	}
}

// Visible returns the rows to render for query, best match first.
func Visible(v *domain.ViewState, query string) []domain.Bookmark {
	if v == nil {
		return []domain.Bookmark{}
	}
	return domain.Search(query, v.Bookmarks)
}

// insert runs one Insert against the repository and folds the outcome into
// v. It reports success.
func (c *Controller) insert(ctx context.Context, v *domain.ViewState, sess *domain.Session, draft domain.Draft) bool {
	b, err := c.repo.Insert(ctx, sess, draft)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDraft) {
			return false
		}
		c.notice(v, "insert", draft.URL, err)
		return false
	}
	v.Prepend(b)
	return true
}

func (c *Controller) currentSession(ctx context.Context, sid string) (*domain.Session, error) {
	sess, err := c.sessions.GetSession(ctx, sid)
	if err != nil {
		c.logger.Warn("session lookup failed", logger.Error(err))
		return nil, domain.ErrUnauthenticated
	}
	if sess == nil {
		return nil, domain.ErrUnauthenticated
	}
	return sess, nil
}

func (c *Controller) load(ctx context.Context, sid string) (*domain.ViewState, error) {
	v, err := c.views.LoadView(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load view: %w", err)
	}
	if v == nil {
		v = domain.NewViewState()
	}
	return v, nil
}

func (c *Controller) save(ctx context.Context, sid string, v *domain.ViewState) error {
	if err := c.views.SaveView(ctx, sid, v, c.opts.ViewTTL); err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// notice records a failed remote call on the view. Every operation reports
// the same way.
func (c *Controller) notice(v *domain.ViewState, op, target string, err error) {
	c.logger.Error("bookmark operation failed",
		logger.String("op", op),
		logger.String("target", target),
		logger.String("user_id", v.User.ID),
		logger.Error(err))

	v.AddNotice(domain.Notice{
		ID:      uuid.NewString(),
		Kind:    domain.NoticeError,
		Message: "Error: " + userMessage(err),
		Op:      op,
		Target:  target,
		At:      c.opts.Now(),
	})
}

func userMessage(err error) string {
	var apiErr *supabase.APIError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), supabase.IsUnauthorized(err):
		return MsgNotAuthenticated
	case errors.Is(err, context.DeadlineExceeded):
		return "the bookmark service did not answer in time"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "the bookmark service is unavailable"
	}
}
