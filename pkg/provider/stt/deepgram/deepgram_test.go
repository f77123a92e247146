package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MrWong99/podium/pkg/provider/stt"
)

const sampleResponse = `{
  "metadata": {"duration": 12.5},
  "results": {"channels": [{
    "detected_language": "en",
    "alternatives": [{"transcript": "Um, I think I am a good fit.", "confidence": 0.93}]
  }]}
}`

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestBuildURL_DefaultsAndOverrides(t *testing.T) {
	p, _ := New("key", WithModel("base"))
	raw, err := p.buildURL(stt.Request{Language: "de"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(raw)
	q := u.Query()

	if q.Get("model") != "base" {
		t.Errorf("model = %q, want base", q.Get("model"))
	}
	if q.Get("language") != "de" {
		t.Errorf("language = %q, want de", q.Get("language"))
	}
	if q.Get("filler_words") != "true" {
		t.Errorf("filler_words = %q, want true", q.Get("filler_words"))
	}
}

func TestParseDeepgramResponse(t *testing.T) {
	tr, err := parseDeepgramResponse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Text != "Um, I think I am a good fit." {
		t.Errorf("text = %q", tr.Text)
	}
	if tr.Duration != 12500*time.Millisecond {
		t.Errorf("duration = %v, want 12.5s", tr.Duration)
	}
	if tr.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", tr.Confidence)
	}
	if tr.Language != "en" {
		t.Errorf("language = %q, want en", tr.Language)
	}
}

func TestParseDeepgramResponse_NoAlternatives(t *testing.T) {
	if _, err := parseDeepgramResponse([]byte(`{"results":{"channels":[]}}`)); err == nil {
		t.Fatal("expected error for empty channels")
	}
	if _, err := parseDeepgramResponse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestTranscribe_AgainstFakeServer(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	p, _ := New("secret", WithEndpoint(srv.URL))
	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:       []byte("webm-bytes"),
		ContentType: "audio/webm",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotAuth != "Token secret" {
		t.Errorf("authorization = %q, want %q", gotAuth, "Token secret")
	}
	if gotType != "audio/webm" {
		t.Errorf("content-type = %q, want audio/webm", gotType)
	}
	if string(gotBody) != "webm-bytes" {
		t.Errorf("body = %q, want raw audio", gotBody)
	}
	if tr.Text == "" {
		t.Error("expected non-empty transcript")
	}
}

func TestTranscribe_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"Invalid credentials."}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("bad", WithEndpoint(srv.URL))
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1}}); err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}
