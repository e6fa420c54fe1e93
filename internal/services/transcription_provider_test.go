package services

import (
	"strings"
	"testing"
)

func TestParseTranscriptJSON(t *testing.T) {
	raw := `{"text": " hello world ", "language": "en-US", "confidence": 0.92, "has_audio": true}`
	got, err := parseTranscriptJSON(raw)
	if err != nil {
		t.Fatalf("parseTranscriptJSON: %v", err)
	}
	if got.Text != "hello world" {
		t.Fatalf("text: want=%q got=%q", "hello world", got.Text)
	}
	if got.Language != "en-US" {
		t.Fatalf("language: want=%q got=%q", "en-US", got.Language)
	}
	if got.Confidence != 0.92 {
		t.Fatalf("confidence: want=0.92 got=%v", got.Confidence)
	}
	if !got.HasAudio {
		t.Fatalf("has_audio: want=true got=false")
	}
}

func TestParseTranscriptJSONCodeFence(t *testing.T) {
	raw := "```json\n{\"text\": \"fenced\", \"language\": \"en\", \"confidence\": 0.5, \"has_audio\": true}\n```"
	got, err := parseTranscriptJSON(raw)
	if err != nil {
		t.Fatalf("parseTranscriptJSON: %v", err)
	}
	if got.Text != "fenced" {
		t.Fatalf("text: want=%q got=%q", "fenced", got.Text)
	}
}

func TestParseTranscriptJSONClampsConfidence(t *testing.T) {
	got, err := parseTranscriptJSON(`{"text": "x", "confidence": 1.7, "has_audio": true}`)
	if err != nil {
		t.Fatalf("parseTranscriptJSON: %v", err)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence: want=1 got=%v", got.Confidence)
	}

	got, err = parseTranscriptJSON(`{"text": "x", "confidence": -0.2, "has_audio": true}`)
	if err != nil {
		t.Fatalf("parseTranscriptJSON: %v", err)
	}
	if got.Confidence != 0 {
		t.Fatalf("confidence: want=0 got=%v", got.Confidence)
	}
}

func TestParseTranscriptJSONRejectsProse(t *testing.T) {
	if _, err := parseTranscriptJSON("Sure! Here is the transcript: hello"); err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```json\n{\"a\":1}\n```  ", "{\"a\":1}"},
	}
	for _, c := range cases {
		if got := stripCodeFence(c.in); got != c.want {
			t.Fatalf("stripCodeFence(%q): want=%q got=%q", c.in, c.want, got)
		}
	}
}

func TestNewTranscriptionProviderUnknownEngine(t *testing.T) {
	_, err := NewTranscriptionProvider(nil, "whisper", nil, nil)
	if err == nil {
		t.Fatalf("expected error for unknown engine")
	}
	if !strings.Contains(err.Error(), "whisper") {
		t.Fatalf("error should name the engine, got %q", err.Error())
	}
}
