package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/podium/pkg/provider/llm"
	"github.com/MrWong99/podium/pkg/types"
)

// Coaching request parameters.
const (
	DefaultFeedbackTemperature = 0.7
	DefaultFeedbackMaxTokens   = 300
	maxSuggestions             = 3
)

// CoachSystemPrompt is the system message for feedback generation.
const CoachSystemPrompt = "You are an expert speech coach providing constructive feedback. Be encouraging but honest. Focus on actionable advice."

const (
	parsedFallbackSummary  = "Good effort! Here are some areas for improvement."
	defaultFeedbackSummary = "Good effort! Here are some general tips for improvement."
)

// Feedback sources reported in metrics and logs.
const (
	SourceLLM     = "llm"
	SourceDefault = "default"
)

// DefaultSuggestions are returned whenever the coach gives no usable tips.
func DefaultSuggestions() []string {
	return []string{
		"Practice speaking more slowly and clearly",
		"Try to reduce filler words like 'um' and 'like'",
		"Add more pauses between key points for emphasis",
	}
}

// DefaultFeedback is the generic advice used when no chat model answers.
func DefaultFeedback() types.Feedback {
	return types.Feedback{Summary: defaultFeedbackSummary, Suggestions: DefaultSuggestions()}
}

// PromptInput is everything the coaching prompt refers to.
type PromptInput struct {
	CategoryID   string
	QuestionID   string
	QuestionText string
	Transcript   string
	Metrics      types.Metrics
}

// BuildPrompt renders the user message sent to the coach.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are an expert speech coach analyzing a practice response.\n\n")
	fmt.Fprintf(&b, "Question Category: %s\n", in.CategoryID)
	fmt.Fprintf(&b, "Question ID: %s\n", in.QuestionID)
	if in.QuestionText != "" {
		fmt.Fprintf(&b, "Question: %s\n", in.QuestionText)
	}
	fmt.Fprintf(&b, "\nTranscript: %q\n\n", in.Transcript)
	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "- Filler words: %d\n", in.Metrics.FillerWords)
	fmt.Fprintf(&b, "- Speech rate: %d words per minute\n", in.Metrics.SpeechRate)
	fmt.Fprintf(&b, "- Pause duration: %g seconds\n", in.Metrics.PauseDuration)
	fmt.Fprintf(&b, "- Confidence score: %d%%\n\n", int(math.Round(in.Metrics.Confidence*100)))
	b.WriteString("Please provide:\n")
	b.WriteString("1. A brief summary (2-3 sentences) of the overall performance\n")
	b.WriteString("2. 3 specific, actionable suggestions for improvement\n\n")
	b.WriteString("Focus on practical advice that can be implemented immediately. Be encouraging but honest about areas for improvement.")
	return b.String()
}

// ParseFeedback splits a coach reply into a summary line and up to three
// suggestions. Blank lines are ignored.
func ParseFeedback(text string) types.Feedback {
	var lines []string
	for l := range strings.Lines(text) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimRight(l, "\r\n"))
		}
	}

	fb := types.Feedback{Summary: parsedFallbackSummary}
	if len(lines) > 0 {
		fb.Summary = lines[0]
		rest := lines[1:]
		fb.Suggestions = rest[:min(len(rest), maxSuggestions)]
	}
	if len(fb.Suggestions) == 0 {
		fb.Suggestions = DefaultSuggestions()
	}
	return fb
}

// Coach asks a chat model for feedback on an answer.
type Coach struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// NewCoach returns a coach backed by p. A nil p always yields
// [DefaultFeedback]. Zero temperature or maxTokens select the defaults.
func NewCoach(p llm.Provider, temperature float64, maxTokens int) *Coach {
	if temperature <= 0 {
		temperature = DefaultFeedbackTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultFeedbackMaxTokens
	}
	return &Coach{llm: p, temperature: temperature, maxTokens: maxTokens}
}

// Feedback returns the coach's advice and its source. Model failures are
// not errors: the returned error is informational and the feedback is
// always usable.
func (c *Coach) Feedback(ctx context.Context, in PromptInput) (types.Feedback, string, error) {
	if c.llm == nil {
		return DefaultFeedback(), SourceDefault, nil
	}
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: CoachSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(in)}},
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		return DefaultFeedback(), SourceDefault, fmt.Errorf("analysis: generate feedback: %w", err)
	}
	if resp == nil {
		return DefaultFeedback(), SourceDefault, errors.New("analysis: generate feedback: empty response")
	}
	return ParseFeedback(resp.Content), SourceLLM, nil
}
