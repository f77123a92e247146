// Package stt defines the Provider interface for Speech-to-Text backends.
//
// Podium transcribes complete practice recordings, so the abstraction is a
// single batch call: the caller hands over the encoded audio file (WAV, WebM,
// MP3, ...) and receives the full transcript. Hosted Whisper, a local
// whisper.cpp server and Deepgram's pre-recorded API all fit this shape.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// DefaultFilename is used when a Request carries no filename. Most backends
// sniff the container format from the extension.
const DefaultFilename = "audio.wav"

// Request describes a single recording to transcribe.
type Request struct {
	// Audio is the encoded audio file. Must be non-empty.
	Audio []byte

	// Filename is the upload name, including extension. Empty selects
	// [DefaultFilename].
	Filename string

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	// Empty lets the provider infer it.
	ContentType string

	// Language is an ISO-639-1 hint (e.g., "en"). Empty means auto-detect.
	Language string

	// Prompt is optional context that biases recognition, such as the
	// practice question being answered.
	Prompt string
}

// Name returns the effective upload filename.
func (r Request) Name() string {
	if r.Filename == "" {
		return DefaultFilename
	}
	return r.Filename
}

// Transcript is the result of a batch transcription.
type Transcript struct {
	// Text is the full transcribed speech.
	Text string

	// Language is the detected or requested language, when reported.
	Language string

	// Duration is the audio length reported by the backend. Zero when the
	// backend does not report it.
	Duration time.Duration

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// backend does not report it.
	Confidence float64
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts req.Audio to text. It returns an error when the
	// audio is empty, the backend rejects the request, or ctx is cancelled.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
