package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// videoPipeline splits a video into fixed-length windows, transcribes and
// describes each window, and dual-embeds every resulting chunk. Segments are
// processed strictly in order; within one segment, transcription runs in
// parallel with visual description, and the two embeddings run in parallel.
type videoPipeline struct {
	log            *logger.Logger
	tools          localmedia.Tools
	transcriber    TranscriptionProvider
	describer      DescriptionProvider
	embedder       EmbeddingProvider
	segmentLenSec  int
	maxSegments    int
	maxDurationSec int
}

func NewVideoPipeline(
	log *logger.Logger,
	tools localmedia.Tools,
	transcriber TranscriptionProvider,
	describer DescriptionProvider,
	embedder EmbeddingProvider,
	segmentLenSec, maxSegments, maxDurationSec int,
) Pipeline {
	if segmentLenSec <= 0 {
		segmentLenSec = 30
	}
	if maxSegments <= 0 {
		maxSegments = 30
	}
	return &videoPipeline{
		log:            log.With("service", "VideoPipeline"),
		tools:          tools,
		transcriber:    transcriber,
		describer:      describer,
		embedder:       embedder,
		segmentLenSec:  segmentLenSec,
		maxSegments:    maxSegments,
		maxDurationSec: maxDurationSec,
	}
}

// SegmentCount is the fixed-window count for a duration: ceil(d/len), with
// a floor of one segment for degenerate durations.
func SegmentCount(durationSec float64, segmentLenSec int) int {
	if durationSec <= 0 || segmentLenSec <= 0 {
		return 1
	}
	n := int(math.Ceil(durationSec / float64(segmentLenSec)))
	if n < 1 {
		n = 1
	}
	return n
}

func (p *videoPipeline) Run(ctx context.Context, in PipelineInput) ([]ChunkDraft, error) {
	duration, err := p.tools.ProbeDurationSec(ctx, in.LocalPath)
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, "probing video duration", err)
	}
	if p.maxDurationSec > 0 && duration > float64(p.maxDurationSec) {
		return nil, NewPipelineError(ClassResourceLimit,
			fmt.Sprintf("video duration %.0fs exceeds limit of %ds", duration, p.maxDurationSec), nil)
	}

	total := SegmentCount(duration, p.segmentLenSec)
	if total > p.maxSegments {
		return nil, NewPipelineError(ClassResourceLimit,
			fmt.Sprintf("video needs %d segments, limit is %d", total, p.maxSegments), nil)
	}

	workDir, cleanup, err := p.tools.MakeWorkDir("video")
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, "creating segment work dir", err)
	}
	defer cleanup()

	// Segment extraction stays sequential: one ffmpeg invocation at a time
	// against the same input file.
	in.Progress.Stage("extracting")
	segmentPaths := make([]string, total)
	for i := 0; i < total; i++ {
		startSec := float64(i * p.segmentLenSec)
		lengthSec := float64(p.segmentLenSec)
		if remaining := duration - startSec; remaining > 0 && remaining < lengthSec {
			lengthSec = remaining
		}
		outPath := filepath.Join(workDir, fmt.Sprintf("segment_%04d%s", i, filepath.Ext(in.LocalPath)))
		if err := p.tools.ExtractSegment(ctx, in.LocalPath, outPath, startSec, lengthSec); err != nil {
			return nil, NewPipelineError(ClassExtraction, fmt.Sprintf("extracting segment %d", i), err)
		}
		segmentPaths[i] = outPath
		in.Progress.StageStep("extracting", i+1, total)
	}

	in.Progress.Stage("transcribing")
	drafts := make([]ChunkDraft, total)
	for i := 0; i < total; i++ {
		draft, err := p.processSegment(ctx, in, segmentPaths[i], i, total, duration)
		if err != nil {
			return nil, err
		}
		drafts[i] = *draft
		in.Progress.StageStep("transcribing", i+1, total)
	}
	return drafts, nil
}

func (p *videoPipeline) processSegment(ctx context.Context, in PipelineInput, path string, index, total int, totalDuration float64) (*ChunkDraft, error) {
	startSec := float64(index * p.segmentLenSec)
	endSec := startSec + float64(p.segmentLenSec)
	if endSec > totalDuration && totalDuration > startSec {
		endSec = totalDuration
	}

	metadata := map[string]interface{}{
		"media_class":      string(MediaClassVideo),
		"source_filename":  in.Document.Filename,
		"segment_index":    index,
		"total_segments":   total,
		"start_offset_sec": startSec,
		"end_offset_sec":   endSec,
		"duration_sec":     totalDuration,
	}

	// Transcription and description are independent; run them together.
	var transcript *TranscriptResult
	var transcriptErr error
	var description string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := p.transcriber.TranscribeFile(gctx, path, in.MimeType)
		if err != nil {
			p.log.Warn("Segment transcription failed, storing placeholder",
				"document_id", in.Document.ID, "segment", index, "error", err)
			transcriptErr = err
			return nil
		}
		transcript = result
		return nil
	})
	g.Go(func() error {
		out, err := p.describer.DescribeVideoFile(gctx, path, in.MimeType)
		if err != nil {
			p.log.Warn("Segment description failed",
				"document_id", in.Document.ID, "segment", index, "error", err)
			return nil
		}
		description = out
		return nil
	})
	_ = g.Wait()

	metadata["transcript"] = transcriptMeta(transcript, transcriptErr)
	content := noAudioPlaceholder
	if transcriptErr == nil && transcript != nil && transcript.HasAudio && transcript.Text != "" {
		content = transcript.Text
	}

	var contextPtr *string
	if description != "" {
		contextPtr = strPtr(description)
		metadata["description_model"] = p.describer.Model()
	}

	segmentData, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, fmt.Sprintf("reading segment %d", index), err)
	}

	// The text embedding covers the transcript alone so lexical search over
	// speech stays pure; the visuals live only in the multimodal embedding.
	textInput := content
	mmContext := description
	if mmContext == "" {
		mmContext = content
	}

	var textVec, mmVec types.Vector
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		vec, err := p.embedder.EmbedText(ectx, textInput)
		if err != nil {
			return err
		}
		textVec = vec
		return nil
	})
	eg.Go(func() error {
		vec, err := p.embedder.EmbedMedia(ectx, segmentData, in.MimeType, mmContext)
		if err != nil {
			return err
		}
		mmVec = vec
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &ChunkDraft{
		Index:               index,
		Content:             content,
		Context:             contextPtr,
		EmbeddingType:       types.EmbeddingTypeMultimodal,
		TextEmbedding:       textVec,
		MultimodalEmbedding: mmVec,
		Metadata:            metadata,
	}, nil
}
