package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/podium/internal/catalog"
	"github.com/MrWong99/podium/pkg/history"
	historymock "github.com/MrWong99/podium/pkg/history/mock"
	"github.com/MrWong99/podium/pkg/provider/llm"
	llmmock "github.com/MrWong99/podium/pkg/provider/llm/mock"
	"github.com/MrWong99/podium/pkg/provider/stt"
	sttmock "github.com/MrWong99/podium/pkg/provider/stt/mock"
)

var sampleAudio = base64.StdEncoding.EncodeToString([]byte("\x1a\x45\xdf\xa3 pretend webm audio payload"))

func TestDecodeAudio(t *testing.T) {
	t.Parallel()
	raw := []byte("hello audio")
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"std", base64.StdEncoding.EncodeToString(raw), nil},
		{"raw std", base64.RawStdEncoding.EncodeToString(raw), nil},
		{"data url", "data:audio/webm;base64," + base64.StdEncoding.EncodeToString(raw), nil},
		{"empty", "", ErrAudioRequired},
		{"whitespace", "   ", ErrAudioRequired},
		{"garbage", "!!not base64!!", ErrInvalidAudio},
		{"data url without comma", "data:audio/webm;base64", ErrInvalidAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeAudio(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && string(got) != string(raw) {
				t.Errorf("decoded = %q", got)
			}
		})
	}
}

func TestService_AnalyzeFullPipeline(t *testing.T) {
	t.Parallel()
	sttP := &sttmock.Provider{Result: &stt.Transcript{Text: "  I led a team of five engineers, um, successfully.  "}}
	llmP := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Great answer.\nSlow down a bit"}}
	store := &historymock.Store{}

	svc := NewService(
		WithTranscriber(sttP),
		WithCoach(NewCoach(llmP, 0, 0)),
		WithStore(store),
		WithCatalog(catalog.NewHolder(catalog.Default())),
		WithLanguage("en"),
	)

	res, err := svc.Analyze(context.Background(), Request{
		AudioBase64:     sampleAudio,
		CategoryID:      "interview",
		QuestionID:      "tell-me-about-yourself",
		DurationSeconds: 30,
		Persist:         true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Transcript != "I led a team of five engineers, um, successfully." {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if res.Metrics.FillerWords != 1 {
		t.Errorf("FillerWords = %d, want 1", res.Metrics.FillerWords)
	}
	// 9 words over 30 s.
	if res.Metrics.SpeechRate != 18 {
		t.Errorf("SpeechRate = %d, want 18", res.Metrics.SpeechRate)
	}
	if res.Feedback.Summary != "Great answer." {
		t.Errorf("Feedback = %+v", res.Feedback)
	}
	if res.SessionID != 1 {
		t.Errorf("SessionID = %d, want 1", res.SessionID)
	}

	if got := sttP.Calls[0].Req; got.Filename != "audio.webm" || got.Language != "en" {
		t.Errorf("stt request = %+v", got)
	}
	prompt := llmP.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, "Question: Tell me about yourself") {
		t.Errorf("prompt lacks question text:\n%s", prompt)
	}

	saved := store.Created[0]
	if saved.UserID != history.DemoUser.ID || saved.DurationSeconds != 30 || saved.ConfidenceScore != res.Metrics.Confidence {
		t.Errorf("saved session = %+v", saved)
	}
}

func TestService_TranscriptionFailureUsesMock(t *testing.T) {
	t.Parallel()
	svc := NewService(WithTranscriber(&sttmock.Provider{Err: errors.New("whisper down")}))

	res, err := svc.Analyze(context.Background(), Request{AudioBase64: sampleAudio})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Transcript != MockTranscript {
		t.Errorf("Transcript = %q, want mock", res.Transcript)
	}
	if res.Feedback.Summary != DefaultFeedback().Summary {
		t.Errorf("without a coach model the default feedback is expected, got %+v", res.Feedback)
	}
}

func TestService_TranscriptionFailureWithoutMock(t *testing.T) {
	t.Parallel()
	svc := NewService(
		WithTranscriber(&sttmock.Provider{Err: errors.New("whisper down")}),
		WithMockTranscript(false),
	)
	_, err := svc.Analyze(context.Background(), Request{AudioBase64: sampleAudio})
	if !errors.Is(err, ErrTranscription) {
		t.Errorf("err = %v, want ErrTranscription", err)
	}
}

func TestService_RejectsBadAudio(t *testing.T) {
	t.Parallel()
	sttP := &sttmock.Provider{Result: &stt.Transcript{Text: "x"}}
	svc := NewService(WithTranscriber(sttP))

	if _, err := svc.Analyze(context.Background(), Request{}); !errors.Is(err, ErrAudioRequired) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := svc.Analyze(context.Background(), Request{AudioBase64: "%%%"}); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("garbage: err = %v", err)
	}
	if sttP.CallCount() != 0 {
		t.Error("transcriber must not be called for invalid input")
	}
}

func TestService_PersistFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	store := &historymock.Store{CreateErr: errors.New("db down")}
	svc := NewService(
		WithTranscriber(&sttmock.Provider{Result: &stt.Transcript{Text: "hello there"}}),
		WithStore(store),
	)
	res, err := svc.Analyze(context.Background(), Request{AudioBase64: sampleAudio, Persist: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.SessionID != 0 {
		t.Errorf("SessionID = %d, want 0", res.SessionID)
	}
	if store.CallCount("CreateSession") != 1 {
		t.Error("expected a persistence attempt")
	}
}

func TestService_NoPersistWhenNotRequested(t *testing.T) {
	t.Parallel()
	store := &historymock.Store{}
	svc := NewService(
		WithTranscriber(&sttmock.Provider{Result: &stt.Transcript{Text: "hello"}}),
		WithStore(store),
	)
	if _, err := svc.Analyze(context.Background(), Request{AudioBase64: sampleAudio}); err != nil {
		t.Fatal(err)
	}
	if store.CallCount("CreateSession") != 0 {
		t.Error("session persisted although not requested")
	}
}
