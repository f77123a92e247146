package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/podium/pkg/provider/stt"
)

var errEmptyResponse = errors.New("provider returned no result")

// STTFallback implements [stt.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the provider names in failover order.
func (f *STTFallback) Names() []string { return f.group.Names() }

// States reports each provider's breaker state.
func (f *STTFallback) States() map[string]State { return f.group.States() }

// Transcribe sends the recording to the first healthy provider.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (*stt.Transcript, error) {
		t, err := p.Transcribe(ctx, req)
		if err == nil && t == nil {
			return nil, errEmptyResponse
		}
		return t, err
	})
}
