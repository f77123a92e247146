// Package types defines the speech-practice data shared across Podium
// packages.
//
// The analysis pipeline produces these values, the history stores persist
// them and the API serialises them. They live here so that the producers and
// the storage backends do not import each other.
package types

// Metrics are the heuristic delivery measurements computed from a transcript.
type Metrics struct {
	// FillerWords is the number of disfluencies ("um", "you know", ...).
	FillerWords int `json:"fillerWords"`

	// SpeechRate is the speaking pace in words per minute.
	SpeechRate int `json:"speechRate"`

	// PauseDuration estimates the silent time in seconds, one decimal.
	PauseDuration float64 `json:"pauseDuration"`

	// Confidence is a 0..1 delivery score with two decimals.
	Confidence float64 `json:"confidence"`
}

// Feedback is the coaching advice returned for a practice answer.
type Feedback struct {
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

// SpeechAnalysis is the complete result of analysing one recording.
type SpeechAnalysis struct {
	Transcript string   `json:"transcript"`
	Metrics    Metrics  `json:"metrics"`
	Feedback   Feedback `json:"feedback"`
}
