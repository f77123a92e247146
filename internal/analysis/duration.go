package analysis

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// SpeakingTime determines how long the answer lasted. A WAV header wins,
// then the client-reported seconds, then [DefaultSpeakingTime].
func SpeakingTime(audio []byte, clientSeconds float64) time.Duration {
	if d, ok := wavDuration(audio); ok {
		return d
	}
	if clientSeconds > 0 {
		return time.Duration(clientSeconds * float64(time.Second))
	}
	return DefaultSpeakingTime
}

// wavDuration reads the duration from a RIFF/WAVE header.
func wavDuration(audio []byte) (time.Duration, bool) {
	if len(audio) < 44 {
		return 0, false
	}
	dec := wav.NewDecoder(bytes.NewReader(audio))
	if !dec.IsValidFile() {
		return 0, false
	}
	d, err := dec.Duration()
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// audioFormat guesses a filename and MIME type for an upload so that the
// transcription backend decodes it with the right demuxer. Browsers record
// WebM/Opus by default; anything unrecognised is sent as WAV.
func audioFormat(audio []byte) (filename, contentType string) {
	ct := http.DetectContentType(audio)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch ct {
	case "audio/wave":
		return "audio.wav", "audio/wav"
	case "video/webm", "audio/webm":
		return "audio.webm", "audio/webm"
	case "application/ogg", "audio/ogg":
		return "audio.ogg", "audio/ogg"
	case "audio/mpeg":
		return "audio.mp3", "audio/mpeg"
	case "video/mp4", "audio/mp4":
		return "audio.m4a", "audio/mp4"
	case "audio/aiff":
		return "audio.aiff", "audio/aiff"
	}
	return "audio.wav", "audio/wav"
}
