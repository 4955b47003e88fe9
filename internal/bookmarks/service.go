// Package bookmarks is the repository adapter between the views and the
// bookmark storage backend.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
)

// ErrNoSession is returned when a call is made without a session.
var ErrNoSession = fmt.Errorf("bookmarks: %w", domain.ErrUnauthenticated)

// Repository is the storage contract. Every call acts on behalf of the
// given session and only ever sees that user's rows.
type Repository interface {
	List(ctx context.Context, sess *domain.Session) ([]domain.Bookmark, error)
	Insert(ctx context.Context, sess *domain.Session, draft domain.Draft) (domain.Bookmark, error)
	Delete(ctx context.Context, sess *domain.Session, id string) error
}

// Service decorates a backend Repository with a per-call timeout, logging
// and metrics. It implements Repository itself.
type Service struct {
	backend Repository
	timeout time.Duration
	logger  logger.Logger
	metrics *telemetry.Metrics
}

// NewService wraps backend. metrics may be nil.
func NewService(backend Repository, timeout time.Duration, log logger.Logger, metrics *telemetry.Metrics) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		backend: backend,
		timeout: timeout,
		logger:  log,
		metrics: metrics,
	}
}

// List returns the user's bookmarks newest first, never nil on success.
func (s *Service) List(ctx context.Context, sess *domain.Session) ([]domain.Bookmark, error) {
	if sess == nil {
		return nil, ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	list, err := s.backend.List(ctx, sess)
	s.metrics.ObserveRemote("list", start, err)
	if err != nil {
		s.logger.Error("list bookmarks failed",
			logger.String("op", "list"),
			logger.String("user_id", sess.User.ID),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return nil, err
	}

	if list == nil {
		list = []domain.Bookmark{}
	}
	domain.SortNewestFirst(list)
	return list, nil
}

// Insert normalises the draft and creates the row. Blank drafts return
// domain.ErrEmptyDraft without touching the backend.
func (s *Service) Insert(ctx context.Context, sess *domain.Session, draft domain.Draft) (domain.Bookmark, error) {
	if sess == nil {
		return domain.Bookmark{}, ErrNoSession
	}

	draft, err := draft.Normalize()
	if err != nil {
		return domain.Bookmark{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	created, err := s.backend.Insert(ctx, sess, draft)
	s.metrics.ObserveRemote("insert", start, err)
	if err != nil {
		s.logger.Error("insert bookmark failed",
			logger.String("op", "insert"),
			logger.String("user_id", sess.User.ID),
			logger.String("url", draft.URL),
			logger.Error(err))
		return domain.Bookmark{}, err
	}

	if created.UserID != "" && created.UserID != sess.User.ID {
		err := fmt.Errorf("insert bookmark: service returned a row owned by %s", created.UserID)
		s.logger.Error("insert bookmark returned foreign row",
			logger.String("op", "insert"),
			logger.String("target", created.ID),
			logger.Error(err))
		return domain.Bookmark{}, err
	}

	s.logger.Debug("bookmark inserted",
		logger.String("op", "insert"),
		logger.String("target", created.ID))
	return created, nil
}

// Delete removes the row with id.
func (s *Service) Delete(ctx context.Context, sess *domain.Session, id string) error {
	if sess == nil {
		return ErrNoSession
	}
	if id == "" {
		return errors.New("delete bookmark: empty id")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.backend.Delete(ctx, sess, id)
	s.metrics.ObserveRemote("delete", start, err)
	if err != nil {
		s.logger.Error("delete bookmark failed",
			logger.String("op", "delete"),
			logger.String("target", id),
			logger.Error(err))
		return err
	}

	s.logger.Debug("bookmark deleted",
		logger.String("op", "delete"),
		logger.String("target", id))
	return nil
}
