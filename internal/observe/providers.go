package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/podium/pkg/provider/llm"
	"github.com/MrWong99/podium/pkg/provider/stt"
)

// InstrumentLLM wraps p so every completion is traced and recorded in m
// under the given provider name.
func InstrumentLLM(p llm.Provider, name string, m *Metrics) llm.Provider {
	return &instrumentedLLM{next: p, name: name, m: m}
}

type instrumentedLLM struct {
	next llm.Provider
	name string
	m    *Metrics
}

func (i *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := StartSpan(ctx, "llm.complete",
		trace.WithAttributes(attribute.String("provider", i.name)))
	start := time.Now()
	resp, err := i.next.Complete(ctx, req)
	i.m.RecordProviderCall(ctx, i.name, KindLLM, time.Since(start), err)
	if resp != nil {
		span.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int("llm.tokens.total", resp.Usage.TotalTokens),
		)
	}
	EndSpan(span, err)
	return resp, err
}

// InstrumentSTT wraps p so every transcription is traced and recorded in m
// under the given provider name.
func InstrumentSTT(p stt.Provider, name string, m *Metrics) stt.Provider {
	return &instrumentedSTT{next: p, name: name, m: m}
}

type instrumentedSTT struct {
	next stt.Provider
	name string
	m    *Metrics
}

func (i *instrumentedSTT) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	ctx, span := StartSpan(ctx, "stt.transcribe", trace.WithAttributes(
		attribute.String("provider", i.name),
		attribute.Int("audio.bytes", len(req.Audio)),
	))
	start := time.Now()
	tr, err := i.next.Transcribe(ctx, req)
	i.m.RecordProviderCall(ctx, i.name, KindSTT, time.Since(start), err)
	EndSpan(span, err)
	return tr, err
}
