package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/podium/pkg/history"
)

var _ history.Store = (*Store)(nil)

// Store is a [history.Store] backed by a single [pgxpool.Pool].
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Option configures the pool created by [NewStore].
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. Values <= 0 keep the pgxpool default.
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// NewStore connects to the database at dsn, verifies the connection and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	for _, o := range opts {
		o(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

const sessionColumns = `id, user_id, category_id, question_id, transcript, metrics, feedback,
	duration_seconds, confidence_score, created_at`

// CreateSession implements [history.Store].
func (s *Store) CreateSession(ctx context.Context, sess history.Session) (history.Session, error) {
	if err := sess.Validate(); err != nil {
		return history.Session{}, err
	}
	const q = `
		INSERT INTO practice_sessions
		    (user_id, category_id, question_id, transcript, metrics, feedback,
		     duration_seconds, confidence_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		RETURNING ` + sessionColumns

	var createdAt any
	if !sess.CreatedAt.IsZero() {
		createdAt = sess.CreatedAt
	}
	if sess.Feedback.Suggestions == nil {
		sess.Feedback.Suggestions = []string{}
	}

	rows, err := s.pool.Query(ctx, q,
		sess.UserID,
		sess.CategoryID,
		sess.QuestionID,
		sess.Transcript,
		sess.Metrics,
		sess.Feedback,
		sess.DurationSeconds,
		sess.ConfidenceScore,
		createdAt,
	)
	if err != nil {
		return history.Session{}, fmt.Errorf("postgres store: create session: %w", err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		return history.Session{}, fmt.Errorf("postgres store: create session: %w", err)
	}
	return out, nil
}

// GetSession implements [history.Store].
func (s *Store) GetSession(ctx context.Context, id int64) (history.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1`, id)
	if err != nil {
		return history.Session{}, fmt.Errorf("postgres store: get session: %w", err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Session{}, history.ErrNotFound
	}
	if err != nil {
		return history.Session{}, fmt.Errorf("postgres store: get session: %w", err)
	}
	return out, nil
}

// ListSessions implements [history.Store].
func (s *Store) ListSessions(ctx context.Context, userID int64, limit int) ([]history.Session, error) {
	q := `SELECT ` + sessionColumns + `
		FROM   practice_sessions
		WHERE  user_id = $1
		ORDER  BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += "\nLIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list sessions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list sessions: %w", err)
	}
	if out == nil {
		out = []history.Session{}
	}
	return out, nil
}

// DeleteSession implements [history.Store].
func (s *Store) DeleteSession(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM practice_sessions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres store: delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats implements [history.Store].
func (s *Store) Stats(ctx context.Context, userID int64) (history.Stats, error) {
	const q = `
		SELECT count(*),
		       COALESCE(avg(confidence_score), 0),
		       COALESCE(avg((metrics->>'speechRate')::double precision), 0),
		       COALESCE(sum((metrics->>'fillerWords')::bigint), 0),
		       COALESCE(sum(duration_seconds), 0)
		FROM   practice_sessions
		WHERE  user_id = $1`

	var (
		st      history.Stats
		fillers int64
	)
	err := s.pool.QueryRow(ctx, q, userID).Scan(
		&st.TotalSessions,
		&st.AverageConfidence,
		&st.AverageSpeechRate,
		&fillers,
		&st.TotalPracticeSeconds,
	)
	if err != nil {
		return history.Stats{}, fmt.Errorf("postgres store: stats: %w", err)
	}
	st.TotalFillerWords = int(fillers)
	st.AverageConfidence = history.Round2(st.AverageConfidence)
	st.AverageSpeechRate = history.Round2(st.AverageSpeechRate)
	return st, nil
}

// Progress implements [history.Store].
func (s *Store) Progress(ctx context.Context, userID int64) ([]history.CategoryProgress, error) {
	const q = `
		SELECT category_id, count(*), avg(confidence_score), max(created_at)
		FROM   practice_sessions
		WHERE  user_id = $1
		GROUP  BY category_id
		ORDER  BY category_id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: progress: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.CategoryProgress, error) {
		var p history.CategoryProgress
		if err := row.Scan(&p.CategoryID, &p.Sessions, &p.AverageConfidence, &p.LastPracticedAt); err != nil {
			return history.CategoryProgress{}, err
		}
		p.AverageConfidence = history.Round2(p.AverageConfidence)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: progress: %w", err)
	}
	if out == nil {
		out = []history.CategoryProgress{}
	}
	return out, nil
}

// Ping implements [history.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanSession(row pgx.CollectableRow) (history.Session, error) {
	var sess history.Session
	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.CategoryID,
		&sess.QuestionID,
		&sess.Transcript,
		&sess.Metrics,
		&sess.Feedback,
		&sess.DurationSeconds,
		&sess.ConfidenceScore,
		&sess.CreatedAt,
	)
	return sess, err
}
