package services

import (
	"context"
	"fmt"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
	"github.com/yungbote/mediarag-backend/internal/types"
)

const noAudioPlaceholder = "[no audio]"

// audioPipeline transcribes the whole file into a single chunk with a
// text embedding of the transcript.
type audioPipeline struct {
	log            *logger.Logger
	tools          localmedia.Tools
	transcriber    TranscriptionProvider
	embedder       EmbeddingProvider
	maxDurationSec int
}

func NewAudioPipeline(log *logger.Logger, tools localmedia.Tools, transcriber TranscriptionProvider, embedder EmbeddingProvider, maxDurationSec int) Pipeline {
	return &audioPipeline{
		log:            log.With("service", "AudioPipeline"),
		tools:          tools,
		transcriber:    transcriber,
		embedder:       embedder,
		maxDurationSec: maxDurationSec,
	}
}

func (p *audioPipeline) Run(ctx context.Context, in PipelineInput) ([]ChunkDraft, error) {
	duration, err := p.tools.ProbeDurationSec(ctx, in.LocalPath)
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, "probing audio duration", err)
	}
	if p.maxDurationSec > 0 && duration > float64(p.maxDurationSec) {
		return nil, NewPipelineError(ClassResourceLimit,
			fmt.Sprintf("audio duration %.0fs exceeds limit of %ds", duration, p.maxDurationSec), nil)
	}

	metadata := map[string]interface{}{
		"media_class":     string(MediaClassAudio),
		"source_filename": in.Document.Filename,
		"duration_sec":    duration,
	}

	in.Progress.Stage("transcribing")
	content := noAudioPlaceholder
	result, err := p.transcriber.TranscribeFile(ctx, in.LocalPath, in.MimeType)
	if err != nil {
		// Transcription failure degrades to a placeholder chunk so the
		// document still completes and the failure stays visible.
		p.log.Warn("Audio transcription failed, storing placeholder",
			"document_id", in.Document.ID, "error", err)
	} else if result.HasAudio && result.Text != "" {
		content = result.Text
	}
	metadata["transcript"] = transcriptMeta(result, err)

	in.Progress.Stage("embedding")
	vec, err := p.embedder.EmbedText(ctx, content)
	if err != nil {
		return nil, err
	}
	in.Progress.StageStep("embedding", 1, 1)

	return []ChunkDraft{{
		Index:         0,
		Content:       content,
		EmbeddingType: types.EmbeddingTypeText,
		TextEmbedding: vec,
		Metadata:      metadata,
	}}, nil
}
