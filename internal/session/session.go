// Package session holds the terminal client's view of who is logged in.
//
// The store is populated by one asynchronous fetch of the current login user.
// Ready triggers that fetch the first time it is called and every caller
// waits on the same result; later calls return immediately. A failed fetch
// leaves the store empty (treated as logged out) and keeps the error so
// callers can tell an unreachable server from a missing session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/uloaix/aicode/internal/models"
)

// Fetcher loads the user behind the current credentials.
type Fetcher interface {
	GetLoginUser(ctx context.Context) (*models.LoginUser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*models.LoginUser, error)

// GetLoginUser calls f.
func (f FetcherFunc) GetLoginUser(ctx context.Context) (*models.LoginUser, error) {
	return f(ctx)
}

// Store is the client session. The zero value is not usable; use New.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.RWMutex
	user     *models.LoginUser
	fetchErr error

	initOnce sync.Once
	initDone chan struct{}
}

// New creates a store that loads the session through f.
func New(f Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher:  f,
		logger:   logger,
		initDone: make(chan struct{}),
	}
}

// FetchLoginUser asks the server for the current user and stores the result.
// Any error clears the user and is retained for FetchErr.
func (s *Store) FetchLoginUser(ctx context.Context) (*models.LoginUser, error) {
	u, err := s.fetcher.GetLoginUser(ctx)
	if err == nil && !u.LoggedIn() {
		u = nil
	}

	s.mu.Lock()
	if err != nil {
		s.user = nil
		s.fetchErr = err
	} else {
		s.user = u
		s.fetchErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("fetch login user failed", "err", err)
		return nil, err
	}
	return u, nil
}

// Ready starts the initial fetch on first call and blocks until it resolves
// or ctx is done. The fetch itself runs detached from ctx so a cancelled
// waiter does not poison the shared result.
func (s *Store) Ready(ctx context.Context) error {
	s.initOnce.Do(func() {
		go func() {
			defer close(s.initDone)
			s.FetchLoginUser(context.WithoutCancel(ctx))
		}()
	})
	select {
	case <-s.initDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialized reports whether the initial fetch has resolved.
func (s *Store) Initialized() bool {
	select {
	case <-s.initDone:
		return true
	default:
		return false
	}
}

// LoginUser returns the current user, or nil when logged out.
func (s *Store) LoginUser() *models.LoginUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetLoginUser replaces the session after an explicit login.
func (s *Store) SetLoginUser(u *models.LoginUser) {
	if !u.LoggedIn() {
		u = nil
	}
	s.mu.Lock()
	s.user = u
	s.fetchErr = nil
	s.mu.Unlock()
}

// Clear drops the session after logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.user = nil
	s.fetchErr = nil
	s.mu.Unlock()
}

// FetchErr returns the error of the most recent fetch, nil if it succeeded.
func (s *Store) FetchErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

// Unreachable reports whether the last fetch failed for a reason other than
// the server rejecting the session. isAuthErr classifies rejection errors.
func (s *Store) Unreachable(isAuthErr func(error) bool) bool {
	err := s.FetchErr()
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return isAuthErr == nil || !isAuthErr(err)
}
