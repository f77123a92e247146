package history

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore keeps sessions in process memory. Contents are lost on restart.
type MemStore struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]Session
	now      func() time.Time
}

// MemOption configures a [MemStore].
type MemOption func(*MemStore)

// WithClock overrides the time source used for CreatedAt. Intended for tests.
func WithClock(now func() time.Time) MemOption {
	return func(m *MemStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemStore returns an empty in-memory store.
func NewMemStore(opts ...MemOption) *MemStore {
	m := &MemStore{
		nextID:   1,
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// CreateSession implements [Store].
func (m *MemStore) CreateSession(_ context.Context, s Session) (Session, error) {
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextID
	m.nextID++
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	m.sessions[s.ID] = detach(s)
	return detach(s), nil
}

// GetSession implements [Store].
func (m *MemStore) GetSession(_ context.Context, id int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return detach(s), nil
}

// ListSessions implements [Store].
func (m *MemStore) ListSessions(_ context.Context, userID int64, limit int) ([]Session, error) {
	out := m.userSessions(userID)
	slices.SortFunc(out, func(a, b Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteSession implements [Store].
func (m *MemStore) DeleteSession(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}

// Stats implements [Store].
func (m *MemStore) Stats(_ context.Context, userID int64) (Stats, error) {
	sessions := m.userSessions(userID)
	if len(sessions) == 0 {
		return Stats{}, nil
	}
	var st Stats
	var conf, rate float64
	for _, s := range sessions {
		conf += s.ConfidenceScore
		rate += float64(s.Metrics.SpeechRate)
		st.TotalFillerWords += s.Metrics.FillerWords
		st.TotalPracticeSeconds += s.DurationSeconds
	}
	n := float64(len(sessions))
	st.TotalSessions = len(sessions)
	st.AverageConfidence = Round2(conf / n)
	st.AverageSpeechRate = Round2(rate / n)
	return st, nil
}

// Progress implements [Store].
func (m *MemStore) Progress(_ context.Context, userID int64) ([]CategoryProgress, error) {
	type acc struct {
		n    int
		conf float64
		last time.Time
	}
	byCat := make(map[string]*acc)
	for _, s := range m.userSessions(userID) {
		a := byCat[s.CategoryID]
		if a == nil {
			a = &acc{}
			byCat[s.CategoryID] = a
		}
		a.n++
		a.conf += s.ConfidenceScore
		if s.CreatedAt.After(a.last) {
			a.last = s.CreatedAt
		}
	}

	out := make([]CategoryProgress, 0, len(byCat))
	for id, a := range byCat {
		out = append(out, CategoryProgress{
			CategoryID:        id,
			Sessions:          a.n,
			AverageConfidence: Round2(a.conf / float64(a.n)),
			LastPracticedAt:   a.last,
		})
	}
	slices.SortFunc(out, func(a, b CategoryProgress) int { return cmp.Compare(a.CategoryID, b.CategoryID) })
	return out, nil
}

// Ping implements [Store]. It always succeeds.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store]. It is a no-op.
func (m *MemStore) Close() {}

func (m *MemStore) userSessions(userID int64) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, detach(s))
		}
	}
	return out
}

// detach copies the slices of s so callers never share backing arrays with
// the stored session.
func detach(s Session) Session {
	s.Feedback.Suggestions = slices.Clone(s.Feedback.Suggestions)
	return s
}
