// Package history defines the persistence layer for completed practice
// sessions and the per-user statistics derived from them.
//
// Two implementations ship with Podium: [MemStore], used when no database is
// configured, and the Postgres store in the postgres subpackage, which
// targets a Supabase (or any PostgreSQL) database.
//
// Every implementation must be safe for concurrent use.
package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MrWong99/podium/pkg/types"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("history: session not found")

// ErrInvalidSession wraps validation failures reported by [Session.Validate].
var ErrInvalidSession = errors.New("history: invalid session")

// User is an account that owns practice sessions.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DemoUser is the single account the server operates as until
// authentication is added.
var DemoUser = User{ID: 1, Name: "Demo User", Email: "demo@example.com"}

// Session is a completed, analysed practice attempt.
type Session struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	CategoryID      string         `json:"category_id"`
	QuestionID      string         `json:"question_id"`
	Transcript      string         `json:"transcript"`
	Metrics         types.Metrics  `json:"metrics"`
	Feedback        types.Feedback `json:"feedback"`
	DurationSeconds float64        `json:"duration_seconds"`
	ConfidenceScore float64        `json:"confidence_score"`
	CreatedAt       time.Time      `json:"created_at"`
}

// FieldError describes one invalid field of a session.
type FieldError struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// ValidationError lists every problem found in a session.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Path, ".")+": "+f.Message)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidSession, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSession }

// Validate checks the fields a client must supply. It returns a
// *[ValidationError] or nil.
func (s Session) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Path: []string{field}, Message: msg})
	}

	if s.UserID <= 0 {
		add("userId", "Required")
	}
	if strings.TrimSpace(s.CategoryID) == "" {
		add("categoryId", "Required")
	}
	if strings.TrimSpace(s.QuestionID) == "" {
		add("questionId", "Required")
	}
	if s.DurationSeconds < 0 {
		add("durationSeconds", "Number must be greater than or equal to 0")
	}
	if s.ConfidenceScore < 0 || s.ConfidenceScore > 1 {
		add("confidenceScore", "Number must be between 0 and 1")
	}
	if s.Metrics.FillerWords < 0 || s.Metrics.SpeechRate < 0 || s.Metrics.PauseDuration < 0 {
		add("metrics", "Metrics must not be negative")
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Stats aggregates all sessions of a user.
type Stats struct {
	TotalSessions        int     `json:"totalSessions"`
	AverageConfidence    float64 `json:"averageConfidence"`
	AverageSpeechRate    float64 `json:"averageSpeechRate"`
	TotalFillerWords     int     `json:"totalFillerWords"`
	TotalPracticeSeconds float64 `json:"totalPracticeSeconds"`
}

// CategoryProgress summarises a user's sessions within one category.
type CategoryProgress struct {
	CategoryID        string    `json:"categoryId"`
	Sessions          int       `json:"sessions"`
	AverageConfidence float64   `json:"averageConfidence"`
	LastPracticedAt   time.Time `json:"lastPracticedAt"`
}

// Store persists practice sessions.
type Store interface {
	// CreateSession stores s and returns it with ID and CreatedAt assigned.
	// A zero CreatedAt is set to the current time.
	CreateSession(ctx context.Context, s Session) (Session, error)

	// GetSession returns the session with the given ID or [ErrNotFound].
	GetSession(ctx context.Context, id int64) (Session, error)

	// ListSessions returns the user's sessions newest first. A limit <= 0
	// returns all of them.
	ListSessions(ctx context.Context, userID int64, limit int) ([]Session, error)

	// DeleteSession removes a session and reports whether it existed.
	DeleteSession(ctx context.Context, id int64) (bool, error)

	// Stats aggregates the user's sessions. A user without sessions gets
	// the zero value.
	Stats(ctx context.Context, userID int64) (Stats, error)

	// Progress returns one entry per practised category ordered by
	// category ID.
	Progress(ctx context.Context, userID int64) ([]CategoryProgress, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}

// Round2 rounds v to two decimals. Both backends use it so that they report
// identical averages.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
