package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
	"github.com/yungbote/mediarag-backend/internal/platform/vertex"
)

// TranscriptResult is the normalized output of any transcription engine.
type TranscriptResult struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	HasAudio   bool    `json:"has_audio"`
	Model      string  `json:"model"`
}

type TranscriptionProvider interface {
	TranscribeFile(ctx context.Context, path, mimeType string) (*TranscriptResult, error)
	Engine() string
}

// transcriptMeta is the nested transcript object stored in chunk metadata.
// A nil result with a non-nil err records the failure; an empty or silent
// result records has_audio=false.
func transcriptMeta(result *TranscriptResult, err error) map[string]interface{} {
	m := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	switch {
	case err != nil:
		m["has_audio"] = false
		m["error"] = err.Error()
	case result == nil || !result.HasAudio || result.Text == "":
		m["has_audio"] = false
		if result != nil && result.Model != "" {
			m["model"] = result.Model
		}
	default:
		m["has_audio"] = true
		m["language"] = result.Language
		m["confidence"] = result.Confidence
		m["model"] = result.Model
	}
	return m
}

// NewTranscriptionProvider selects the engine by name. Gemini is the
// default; Speech-to-Text is the drop-in alternative.
func NewTranscriptionProvider(log *logger.Logger, engine string, gemini *vertex.Gemini, tools localmedia.Tools) (TranscriptionProvider, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "gemini":
		return NewGeminiTranscription(log, gemini), nil
	case "speech":
		return NewSpeechTranscription(log, tools)
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", engine)
	}
}

const transcriptionPrompt = `Transcribe the spoken audio in this media exactly.
Respond with a single JSON object and nothing else:
{"text": "<full transcript, empty string if there is no speech>",
 "language": "<BCP-47 language tag of the speech, e.g. en-US>",
 "confidence": <0.0-1.0 confidence in the transcript>,
 "has_audio": <false if the media has no audible speech, else true>}`

type geminiTranscription struct {
	log    *logger.Logger
	gemini *vertex.Gemini
}

func NewGeminiTranscription(log *logger.Logger, gemini *vertex.Gemini) TranscriptionProvider {
	return &geminiTranscription{
		log:    log.With("service", "GeminiTranscription"),
		gemini: gemini,
	}
}

func (p *geminiTranscription) Engine() string { return "gemini" }

func (p *geminiTranscription) TranscribeFile(ctx context.Context, path, mimeType string) (*TranscriptResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPipelineError(ClassTranscription, "reading media file", err)
	}
	if len(data) == 0 {
		return &TranscriptResult{HasAudio: false, Model: p.gemini.Model()}, nil
	}

	raw, err := p.gemini.GenerateJSONFromMedia(ctx, transcriptionPrompt, data, mimeType)
	if err != nil {
		return nil, NewPipelineError(ClassTranscription, "gemini transcription call failed", err)
	}

	result, parseErr := parseTranscriptJSON(raw)
	if parseErr != nil {
		// One repair pass before giving up on the contract.
		repaired, repairErr := p.gemini.GenerateText(ctx,
			"The following should be a single JSON object with keys text, language, confidence, has_audio. "+
				"Return ONLY the corrected JSON object.\n\n"+raw)
		if repairErr == nil {
			result, parseErr = parseTranscriptJSON(repaired)
		}
		if parseErr != nil {
			return nil, NewPipelineError(ClassTranscription, "unparseable transcription response", parseErr)
		}
	}

	result.Model = p.gemini.Model()
	if strings.TrimSpace(result.Text) == "" {
		result.HasAudio = false
	}
	return result, nil
}

func parseTranscriptJSON(raw string) (*TranscriptResult, error) {
	cleaned := stripCodeFence(raw)
	var out TranscriptResult
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("decoding transcript JSON: %w", err)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	out.Text = strings.TrimSpace(out.Text)
	return &out, nil
}

// stripCodeFence unwraps ```json ... ``` fences that models sometimes emit
// even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
