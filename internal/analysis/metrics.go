// Package analysis turns a recorded practice answer into a transcript,
// delivery metrics and coaching feedback, and analyses live conversation
// turns for the interviewer's interruption policy.
package analysis

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/MrWong99/podium/pkg/types"
)

// DefaultSpeakingTime is assumed when the length of a recording is unknown.
const DefaultSpeakingTime = 60 * time.Second

// secondsPerWord is the speaking time a word is assumed to take when
// estimating pauses.
const secondsPerWord = 0.5

// FillerWords are the disfluencies counted by [ComputeMetrics].
var FillerWords = []string{
	"um", "uh", "like", "you know", "i mean", "basically", "actually", "literally",
	"sort of", "kind of", "right", "okay", "so", "well", "hmm", "ah",
}

// fillerPatterns matches each filler as a whole word, case-insensitively.
var fillerPatterns = compileFillers(FillerWords)

func compileFillers(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// countFillers sums the matches of every pattern. Overlapping fillers
// ("you know" and "know") are counted independently per pattern.
func countFillers(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// ComputeMetrics estimates delivery metrics for a transcript spoken over
// speakingTime. A non-positive speakingTime uses [DefaultSpeakingTime].
func ComputeMetrics(transcript string, speakingTime time.Duration) types.Metrics {
	if speakingTime <= 0 {
		speakingTime = DefaultSpeakingTime
	}
	seconds := speakingTime.Seconds()
	words := len(strings.Fields(strings.ToLower(transcript)))
	fillers := countFillers(transcript, fillerPatterns)

	pause := math.Max(0, seconds-float64(words)*secondsPerWord)
	confidence := 1 -
		float64(fillers)/float64(max(words, 1))*0.5 -
		pause/seconds*0.3

	return types.Metrics{
		FillerWords:   fillers,
		SpeechRate:    int(math.Round(float64(words) * 60 / seconds)),
		PauseDuration: roundTo(pause, 1),
		Confidence:    roundTo(clamp(confidence, 0, 1), 2),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
