package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/mediarag-backend/internal/types"
)

func audioInput() PipelineInput {
	doc := pendingDoc("uploads/u1/memo.wav")
	doc.Filename = "memo.wav"
	doc.MimeType = "audio/wav"
	return PipelineInput{
		Document:  doc,
		LocalPath: "/tmp/memo.wav",
		MimeType:  "audio/wav",
		Progress:  NewProgressReporter(nil),
	}
}

func TestAudioPipelineTranscriptChunk(t *testing.T) {
	transcriber := &fakeTranscriber{result: &TranscriptResult{
		Text: "hello world", Language: "en-US", Confidence: 0.95, HasAudio: true, Model: "fake-model",
	}}
	p := NewAudioPipeline(newTestLogger(t), fakeTools{}, transcriber, &fakeEmbedder{}, 3600)

	drafts, err := p.Run(context.Background(), audioInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("drafts: want=1 got=%d", len(drafts))
	}
	draft := drafts[0]
	if draft.Content != "hello world" {
		t.Fatalf("content: got %q", draft.Content)
	}
	if draft.EmbeddingType != types.EmbeddingTypeText || len(draft.TextEmbedding) != types.TextEmbeddingDim {
		t.Fatalf("audio chunk must carry a text embedding, got type=%q dim=%d",
			draft.EmbeddingType, len(draft.TextEmbedding))
	}
	if draft.Metadata["source_filename"] != "memo.wav" {
		t.Fatalf("source_filename: got %v", draft.Metadata["source_filename"])
	}
	transcript, ok := draft.Metadata["transcript"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing transcript metadata")
	}
	if transcript["has_audio"] != true || transcript["language"] != "en-US" || transcript["model"] != "fake-model" {
		t.Fatalf("transcript metadata: got %v", transcript)
	}
	if _, ok := transcript["timestamp"]; !ok {
		t.Fatalf("transcript metadata must record a timestamp, got %v", transcript)
	}
}

func TestAudioPipelineTranscriptionFailureDegrades(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("transcription backend down")}
	p := NewAudioPipeline(newTestLogger(t), fakeTools{}, transcriber, &fakeEmbedder{}, 3600)

	drafts, err := p.Run(context.Background(), audioInput())
	if err != nil {
		t.Fatalf("transcription failure must not fail the run: %v", err)
	}
	draft := drafts[0]
	if draft.Content != noAudioPlaceholder {
		t.Fatalf("content: want=%q got=%q", noAudioPlaceholder, draft.Content)
	}
	transcript := draft.Metadata["transcript"].(map[string]interface{})
	if transcript["has_audio"] != false {
		t.Fatalf("transcript metadata: got %v", transcript)
	}
	if _, ok := transcript["error"]; !ok {
		t.Fatalf("transcript metadata must record the failure, got %v", transcript)
	}
}

func TestAudioPipelineDurationLimit(t *testing.T) {
	transcriber := &fakeTranscriber{result: &TranscriptResult{Text: "x", HasAudio: true}}
	p := NewAudioPipeline(newTestLogger(t), fakeTools{}, transcriber, &fakeEmbedder{}, 5)

	_, err := p.Run(context.Background(), audioInput())
	if err == nil {
		t.Fatalf("expected duration limit error")
	}
	if ClassOf(err) != ClassResourceLimit {
		t.Fatalf("error class: want=%q got=%q", ClassResourceLimit, ClassOf(err))
	}
}
