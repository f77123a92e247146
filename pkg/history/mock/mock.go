// Package mock provides a test double for [history.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent
// use.
//
// Typical usage:
//
//	store := &mock.Store{}
//	store.CreateErr = errors.New("db down")
//
//	// inject store into the system under test …
//
//	if got := store.CallCount("CreateSession"); got != 1 {
//	    t.Errorf("expected 1 CreateSession call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/podium/pkg/history"
)

var _ history.Store = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable [history.Store]. Zero-valued result fields make
// the corresponding method return zero values and a nil error, except
// CreateSession which echoes its input with ID 1.
type Store struct {
	mu    sync.Mutex
	calls []Call

	CreateErr      error
	GetResult      history.Session
	GetErr         error
	ListResult     []history.Session
	ListErr        error
	DeleteResult   bool
	DeleteErr      error
	StatsResult    history.Stats
	StatsErr       error
	ProgressResult []history.CategoryProgress
	ProgressErr    error
	PingErr        error

	// Created holds every session passed to CreateSession.
	Created []history.Session
}

func (s *Store) record(method string, args ...any) {
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of all recorded calls.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how often method was called.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// CreateSession implements [history.Store].
func (s *Store) CreateSession(_ context.Context, sess history.Session) (history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateSession", sess)
	if s.CreateErr != nil {
		return history.Session{}, s.CreateErr
	}
	s.Created = append(s.Created, sess)
	sess.ID = int64(len(s.Created))
	return sess, nil
}

// GetSession implements [history.Store].
func (s *Store) GetSession(_ context.Context, id int64) (history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetSession", id)
	return s.GetResult, s.GetErr
}

// ListSessions implements [history.Store].
func (s *Store) ListSessions(_ context.Context, userID int64, limit int) ([]history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListSessions", userID, limit)
	return s.ListResult, s.ListErr
}

// DeleteSession implements [history.Store].
func (s *Store) DeleteSession(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteSession", id)
	return s.DeleteResult, s.DeleteErr
}

// Stats implements [history.Store].
func (s *Store) Stats(_ context.Context, userID int64) (history.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Stats", userID)
	return s.StatsResult, s.StatsErr
}

// Progress implements [history.Store].
func (s *Store) Progress(_ context.Context, userID int64) ([]history.CategoryProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Progress", userID)
	return s.ProgressResult, s.ProgressErr
}

// Ping implements [history.Store].
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Ping")
	return s.PingErr
}

// Close implements [history.Store].
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Close")
}
