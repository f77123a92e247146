package analysis

import (
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/podium/internal/catalog"
)

// Interruption reasons produced by [Analyzer.Analyze].
const (
	ReasonTooLong        = "Response too long"
	ReasonGettingLong    = "Response getting long"
	ReasonTooManyFillers = "Too many filler words"
	ReasonManyFillers    = "Many filler words"
	ReasonOffTopic       = "Going off-topic"
)

const (
	defaultInterruptionThreshold = 120 * time.Second
	ramblingWordLimit            = 100
	keywordMinWords              = 25
	keywordMatchThreshold        = 0.9
	maxTrackedTurns              = 50
)

// LiveFillerWords is the broader filler list used during live conversation,
// which also counts hedges.
var LiveFillerWords = []string{
	"um", "uh", "like", "you know", "basically", "actually", "literally",
	"sort of", "kind of", "right", "so", "well", "i mean", "i guess",
	"i think", "i feel", "i believe", "maybe", "perhaps", "probably",
}

var liveFillerPatterns = compileFillers(LiveFillerWords)

// evasivePhrases mark an answer that dodges the question.
var evasivePhrases = []string{
	"i don't know",
	"i'm not sure",
	"that's a good question",
	"let me think",
	"that's interesting",
	"i haven't thought about that",
}

// LiveAnalysis is the verdict on one conversational turn.
type LiveAnalysis struct {
	IsRambling         bool    `json:"isRambling"`
	FillerWordCount    int     `json:"fillerWordCount"`
	FillerRatio        float64 `json:"fillerRatio"`
	IsOffTopic         bool    `json:"isOffTopic"`
	ResponseDuration   float64 `json:"responseDuration"` // seconds
	ShouldInterrupt    bool    `json:"shouldInterrupt"`
	InterruptionReason string  `json:"interruptionReason,omitempty"`
}

// Turn is a completed response kept in the analyzer history.
type Turn struct {
	Text      string       `json:"text"`
	Duration  float64      `json:"duration"`
	Analysis  LiveAnalysis `json:"analysis"`
	Timestamp time.Time    `json:"timestamp"`
}

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithTopicKeywords enables keyword-based off-topic detection for longer
// answers.
func WithTopicKeywords(keywords ...string) AnalyzerOption {
	return func(a *Analyzer) {
		for _, k := range keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				a.keywords = append(a.keywords, k)
			}
		}
	}
}

// Analyzer applies an interviewer role's interruption policy to live
// transcripts. [Analyzer.Analyze] is stateless; [Analyzer.Track] follows one
// speaker across updates and is safe for concurrent use.
type Analyzer struct {
	role      catalog.InterviewerRole
	threshold time.Duration
	keywords  []string
	keyCodes  map[string]struct{}

	mu      sync.Mutex
	started time.Time
	text    string
	history []Turn
}

// NewAnalyzer returns an analyzer for role.
func NewAnalyzer(role catalog.InterviewerRole, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		role:      role,
		threshold: defaultInterruptionThreshold,
	}
	if role.InterruptionThreshold > 0 {
		a.threshold = time.Duration(role.InterruptionThreshold * float64(time.Second))
	}
	for _, o := range opts {
		o(a)
	}
	a.keyCodes = make(map[string]struct{})
	for _, k := range a.keywords {
		for _, w := range strings.Fields(k) {
			if p, _ := matchr.DoubleMetaphone(w); p != "" && len(w) >= 4 {
				a.keyCodes[p] = struct{}{}
			}
		}
	}
	return a
}

// Role returns the interviewer role the analyzer applies.
func (a *Analyzer) Role() catalog.InterviewerRole { return a.role }

// Analyze judges a transcript spoken over duration.
func (a *Analyzer) Analyze(transcript string, duration time.Duration) LiveAnalysis {
	lower := strings.ToLower(transcript)
	words := strings.Fields(lower)

	fillers := countFillers(lower, liveFillerPatterns)
	ratio := float64(fillers) / float64(max(len(words), 1))
	rambling := len(words) > ramblingWordLimit || duration > a.threshold
	offTopic := a.isOffTopic(lower, words)

	res := LiveAnalysis{
		IsRambling:       rambling,
		FillerWordCount:  fillers,
		FillerRatio:      roundTo(ratio, 2),
		IsOffTopic:       offTopic,
		ResponseDuration: roundTo(duration.Seconds(), 1),
	}

	switch a.role.ID {
	case "tough":
		switch {
		case rambling:
			res.InterruptionReason = ReasonTooLong
		case ratio > 0.3:
			res.InterruptionReason = ReasonTooManyFillers
		case offTopic:
			res.InterruptionReason = ReasonOffTopic
		}
	case "friendly":
		switch {
		case rambling && duration > a.threshold*3/2:
			res.InterruptionReason = ReasonGettingLong
		case ratio > 0.5:
			res.InterruptionReason = ReasonManyFillers
		}
	default:
		switch {
		case rambling:
			res.InterruptionReason = ReasonTooLong
		case ratio > 0.4:
			res.InterruptionReason = ReasonTooManyFillers
		}
	}
	res.ShouldInterrupt = res.InterruptionReason != ""
	return res
}

func (a *Analyzer) isOffTopic(lower string, words []string) bool {
	for _, p := range evasivePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	if len(a.keywords) == 0 || len(words) < keywordMinWords {
		return false
	}
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if w == "" {
			continue
		}
		if a.matchesKeyword(w) {
			return false
		}
	}
	return true
}

// matchesKeyword accepts a close spelling (Jaro-Winkler) or, for longer
// words, the same Double Metaphone code. The latter catches transcription
// errors such as "compensashun".
func (a *Analyzer) matchesKeyword(word string) bool {
	for _, k := range a.keywords {
		if matchr.JaroWinkler(word, k, false) >= keywordMatchThreshold {
			return true
		}
	}
	if len(word) < 4 {
		return false
	}
	p, _ := matchr.DoubleMetaphone(word)
	_, ok := a.keyCodes[p]
	return ok && p != ""
}

// InterruptionMessage returns what the interviewer says when interrupting
// for reason.
func (a *Analyzer) InterruptionMessage(reason string) string {
	r := strings.ToLower(reason)
	long := strings.Contains(r, "long")
	filler := strings.Contains(r, "filler")

	switch a.role.ID {
	case "tough":
		switch {
		case long:
			return "That's enough. Let's move on to the next question."
		case filler:
			return "Stop using so many filler words. Be more direct."
		case strings.Contains(r, "off-topic"):
			return "You're not answering the question directly. Focus on the question."
		}
		return "Let's move on."
	case "friendly":
		switch {
		case long:
			return "Thank you for that detailed response. Let's move to the next question."
		case filler:
			return "Try to be a bit more direct in your answers."
		}
		return "Let's continue with the next question."
	default:
		switch {
		case long:
			return "Thank you. Let's move on to the next question."
		case filler:
			return "Try to be more concise in your answers."
		}
		return "Let's continue."
	}
}

// Track follows the current response. While speaking it records the latest
// transcript; when the speaker stops it analyses the finished response,
// appends it to the history and returns it with ok set.
func (a *Analyzer) Track(transcript string, speaking bool, now time.Time) (res LiveAnalysis, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case speaking && a.started.IsZero():
		a.started = now
		a.text = transcript
	case speaking:
		a.text = transcript
	case !a.started.IsZero():
		d := now.Sub(a.started)
		res = a.Analyze(a.text, d)
		a.history = append(a.history, Turn{
			Text:      a.text,
			Duration:  roundTo(d.Seconds(), 1),
			Analysis:  res,
			Timestamp: now,
		})
		if len(a.history) > maxTrackedTurns {
			a.history = slices.Delete(a.history, 0, len(a.history)-maxTrackedTurns)
		}
		a.started = time.Time{}
		a.text = ""
		return res, true
	}
	return LiveAnalysis{}, false
}

// Progress analyses the response in flight without ending it, so a client
// can interrupt before the speaker stops. ok is false when nobody speaks.
func (a *Analyzer) Progress(now time.Time) (LiveAnalysis, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started.IsZero() {
		return LiveAnalysis{}, false
	}
	return a.Analyze(a.text, now.Sub(a.started)), true
}

// History returns the completed turns, oldest first.
func (a *Analyzer) History() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.history)
}

// ReasonKind maps an interruption reason to a short metric label.
func ReasonKind(reason string) string {
	switch reason {
	case ReasonTooLong, ReasonGettingLong:
		return "length"
	case ReasonTooManyFillers, ReasonManyFillers:
		return "fillers"
	case ReasonOffTopic:
		return "off_topic"
	}
	return "other"
}
