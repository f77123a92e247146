package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/podium/internal/catalog"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/pkg/history"
	"github.com/MrWong99/podium/pkg/provider/stt"
	"github.com/MrWong99/podium/pkg/types"
)

// MockTranscript stands in for the transcript when no transcriber answers
// and the service runs with the mock transcript enabled.
const MockTranscript = "This is a mock transcript for development purposes. In production, this would be the actual transcribed speech from the user's recording."

var (
	// ErrAudioRequired is returned when the request carries no audio.
	ErrAudioRequired = errors.New("analysis: audio data is required")

	// ErrInvalidAudio is returned when the audio is not valid base64.
	ErrInvalidAudio = errors.New("analysis: invalid audio encoding")

	// ErrTranscription is returned when every transcriber failed and the
	// mock transcript is disabled.
	ErrTranscription = errors.New("analysis: transcription failed")
)

// Request describes one recording to analyse.
type Request struct {
	// AudioBase64 is the recording, base64 encoded. A data URL prefix
	// ("data:audio/webm;base64,") is accepted.
	AudioBase64 string

	QuestionID string
	CategoryID string

	// DurationSeconds is the client-measured recording length. Optional.
	DurationSeconds float64

	// Persist requests saving the result as a practice session.
	Persist bool

	// UserID owns the persisted session. Zero selects the demo user.
	UserID int64
}

// Result is the analysis plus persistence details.
type Result struct {
	types.SpeechAnalysis

	// SessionID is the stored session, zero when nothing was saved.
	SessionID int64 `json:"sessionId,omitempty"`
}

// Option configures a [Service].
type Option func(*Service)

// WithTranscriber sets the speech-to-text provider (usually a fallback chain).
func WithTranscriber(p stt.Provider) Option {
	return func(s *Service) { s.stt = p }
}

// WithCoach sets the feedback generator.
func WithCoach(c *Coach) Option {
	return func(s *Service) {
		if c != nil {
			s.coach = c
		}
	}
}

// WithStore enables session persistence.
func WithStore(st history.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithCatalog supplies question texts for the coaching prompt.
func WithCatalog(h *catalog.Holder) Option {
	return func(s *Service) { s.catalog = h }
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMockTranscript controls whether a failed transcription falls back to
// [MockTranscript]. Enabled by default.
func WithMockTranscript(enabled bool) Option {
	return func(s *Service) { s.mockTranscript = enabled }
}

// WithLanguage sets the ISO-639-1 transcription hint.
func WithLanguage(lang string) Option {
	return func(s *Service) { s.language = lang }
}

// Service runs the transcription, metrics and feedback pipeline.
// It is safe for concurrent use.
type Service struct {
	stt            stt.Provider
	coach          *Coach
	store          history.Store
	catalog        *catalog.Holder
	metrics        *observe.Metrics
	mockTranscript bool
	language       string
}

// NewService returns a service configured by opts.
func NewService(opts ...Option) *Service {
	s := &Service{
		coach:          NewCoach(nil, 0, 0),
		mockTranscript: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Analyze transcribes the recording, computes metrics and asks the coach
// for feedback. Persistence failures are logged and do not fail the call.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "analysis.analyze")
	start := time.Now()
	log := observe.Logger(ctx).With("category", req.CategoryID, "question", req.QuestionID)

	res, source, err := s.analyze(ctx, req, log)
	observe.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAnalysis(ctx, req.CategoryID, source, time.Since(start))
	return res, nil
}

func (s *Service) analyze(ctx context.Context, req Request, log *slog.Logger) (*Result, string, error) {
	audio, err := DecodeAudio(req.AudioBase64)
	if err != nil {
		return nil, "", err
	}

	transcript, err := s.transcribe(ctx, audio)
	if err != nil {
		if !s.mockTranscript {
			return nil, "", err
		}
		log.Warn("transcription failed, using mock transcript", "err", err)
		transcript = MockTranscript
	}

	speaking := SpeakingTime(audio, req.DurationSeconds)
	m := ComputeMetrics(transcript, speaking)

	in := PromptInput{
		CategoryID: req.CategoryID,
		QuestionID: req.QuestionID,
		Transcript: transcript,
		Metrics:    m,
	}
	if s.catalog != nil {
		if q, ok := s.catalog.Get().Question(req.CategoryID, req.QuestionID); ok {
			in.QuestionText = q.Question
		}
	}
	fb, source, err := s.coach.Feedback(ctx, in)
	if err != nil {
		log.Warn("feedback generation failed, using default feedback", "err", err)
	}

	res := &Result{SpeechAnalysis: types.SpeechAnalysis{
		Transcript: transcript,
		Metrics:    m,
		Feedback:   fb,
	}}

	if req.Persist && s.store != nil {
		userID := req.UserID
		if userID == 0 {
			userID = history.DemoUser.ID
		}
		sess, err := s.store.CreateSession(ctx, history.Session{
			UserID:          userID,
			CategoryID:      req.CategoryID,
			QuestionID:      req.QuestionID,
			Transcript:      transcript,
			Metrics:         m,
			Feedback:        fb,
			DurationSeconds: roundTo(speaking.Seconds(), 1),
			ConfidenceScore: m.Confidence,
		})
		if err != nil {
			log.Warn("failed to persist practice session", "err", err)
		} else {
			res.SessionID = sess.ID
		}
	}
	return res, source, nil
}

func (s *Service) transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.stt == nil {
		return "", fmt.Errorf("%w: no transcriber configured", ErrTranscription)
	}
	filename, contentType := audioFormat(audio)
	tr, err := s.stt.Transcribe(ctx, stt.Request{
		Audio:       audio,
		Filename:    filename,
		ContentType: contentType,
		Language:    s.language,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if tr == nil {
		return "", fmt.Errorf("%w: empty response", ErrTranscription)
	}
	return strings.TrimSpace(tr.Text), nil
}

// DecodeAudio decodes base64 audio, tolerating a data URL prefix and
// unpadded or URL-safe encodings.
func DecodeAudio(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrAudioRequired
	}
	if strings.HasPrefix(data, "data:") {
		i := strings.Index(data, ",")
		if i < 0 {
			return nil, ErrInvalidAudio
		}
		data = data[i+1:]
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(data); err == nil {
			if len(b) == 0 {
				return nil, ErrAudioRequired
			}
			return b, nil
		}
	}
	return nil, ErrInvalidAudio
}
