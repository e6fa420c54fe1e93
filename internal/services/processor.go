package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// Processor is the media dispatcher: it resolves the document, downloads the
// object, classifies it, runs the matching pipeline, and hands the drafts to
// the chunk store. One call per queue task.
type Processor interface {
	ProcessTask(ctx context.Context, envelope types.TaskEnvelope) error
}

type ProcessorLimits struct {
	DocMaxBytes   int64
	ImageMaxBytes int64
}

type processor struct {
	log          *logger.Logger
	store        gcp.ObjectStore
	tools        localmedia.Tools
	documentRepo repos.DocumentRepo
	chunkStore   ChunkStore
	tracker      *JobTracker
	pipelines    map[MediaClass]Pipeline
	limits       ProcessorLimits
}

func NewProcessor(
	log *logger.Logger,
	store gcp.ObjectStore,
	tools localmedia.Tools,
	documentRepo repos.DocumentRepo,
	chunkStore ChunkStore,
	tracker *JobTracker,
	pipelines map[MediaClass]Pipeline,
	limits ProcessorLimits,
) Processor {
	return &processor{
		log:          log.With("service", "Processor"),
		store:        store,
		tools:        tools,
		documentRepo: documentRepo,
		chunkStore:   chunkStore,
		tracker:      tracker,
		pipelines:    pipelines,
		limits:       limits,
	}
}

func (p *processor) ProcessTask(ctx context.Context, envelope types.TaskEnvelope) error {
	if err := envelope.Validate(); err != nil {
		return NewPipelineError(ClassValidation, "invalid task envelope", err)
	}
	log := p.log.With("document_id", envelope.DocumentID, "object_key", envelope.ObjectKey)

	doc, err := p.documentRepo.GetByID(nil, envelope.DocumentID)
	if err != nil {
		return NewPipelineError(ClassValidation, "resolving document", err)
	}
	if doc.State == types.DocumentStateCompleted {
		// Redelivered task for a finished document; ack and move on.
		log.Info("Document already completed, skipping redelivered task")
		return nil
	}

	class := ClassifyMedia(envelope.MimeType, envelope.ObjectKey)
	if class == MediaClassUnknown {
		err := NewPipelineError(ClassValidation,
			fmt.Sprintf("unsupported media type %q for %s", envelope.MimeType, envelope.ObjectKey), nil)
		p.markFailed(doc.ID, err)
		return err
	}
	pipeline, ok := p.pipelines[class]
	if !ok {
		err := NewPipelineError(ClassValidation, fmt.Sprintf("no pipeline for media class %q", class), nil)
		p.markFailed(doc.ID, err)
		return err
	}

	if err := p.checkSizeLimit(class, envelope.Size); err != nil {
		p.markFailed(doc.ID, err)
		return err
	}

	if err := p.documentRepo.MarkProcessing(nil, doc.ID); err != nil {
		return NewPipelineError(ClassStorage, "marking document processing", err)
	}
	p.tracker.Start(doc.ID, envelope.ObjectKey, class)
	defer p.tracker.Finish(doc.ID)

	reporter := NewProgressReporter(&repoProgressSink{
		log:        log,
		repo:       p.documentRepo,
		tracker:    p.tracker,
		documentID: doc.ID,
	})
	reporter.Stage("downloading")

	localPath, cleanup, err := p.download(ctx, envelope, class)
	if err != nil {
		p.markFailed(doc.ID, err)
		return err
	}
	defer cleanup()

	mimeType := MimeForClass(envelope.MimeType, envelope.ObjectKey)
	drafts, err := pipeline.Run(ctx, PipelineInput{
		Document:  doc,
		LocalPath: localPath,
		MimeType:  mimeType,
		Progress:  reporter,
	})
	if err != nil {
		if ctx.Err() != nil {
			err = NewPipelineError(ClassTimeout, "job deadline exceeded", ctx.Err())
		}
		p.markFailed(doc.ID, err)
		return err
	}

	reporter.Stage("storing")
	if err := p.chunkStore.PersistDocumentChunks(ctx, doc, drafts); err != nil {
		p.markFailed(doc.ID, err)
		return err
	}
	reporter.Stage("completed")

	log.Info("Document processed", "media_class", class, "chunks", len(drafts))
	return nil
}

func (p *processor) checkSizeLimit(class MediaClass, size int64) error {
	switch class {
	case MediaClassDocument:
		if p.limits.DocMaxBytes > 0 && size > p.limits.DocMaxBytes {
			return NewPipelineError(ClassResourceLimit,
				fmt.Sprintf("document size %d exceeds limit %d", size, p.limits.DocMaxBytes), nil)
		}
	case MediaClassImage:
		if p.limits.ImageMaxBytes > 0 && size > p.limits.ImageMaxBytes {
			return NewPipelineError(ClassResourceLimit,
				fmt.Sprintf("image size %d exceeds limit %d", size, p.limits.ImageMaxBytes), nil)
		}
	}
	// Audio and video limits are duration-based and enforced by their
	// pipelines after probing.
	return nil
}

func (p *processor) download(ctx context.Context, envelope types.TaskEnvelope, class MediaClass) (string, func(), error) {
	workDir, cleanup, err := p.tools.MakeWorkDir("download")
	if err != nil {
		return "", func() {}, NewPipelineError(ClassStorage, "creating download dir", err)
	}

	maxBytes := int64(0)
	switch class {
	case MediaClassDocument:
		maxBytes = p.limits.DocMaxBytes
	case MediaClassImage:
		maxBytes = p.limits.ImageMaxBytes
	}

	ext := filepath.Ext(envelope.ObjectKey)
	localPath := filepath.Join(workDir, "source"+ext)
	if _, err := p.store.DownloadToFile(ctx, envelope.ObjectKey, localPath, maxBytes); err != nil {
		cleanup()
		if _, statErr := os.Stat(localPath); statErr == nil {
			_ = os.Remove(localPath)
		}
		return "", func() {}, NewPipelineError(ClassStorage, "downloading object", err)
	}
	return localPath, cleanup, nil
}

const maxStoredErrorBytes = 1024

func (p *processor) markFailed(documentID uuid.UUID, cause error) {
	msg := cause.Error()
	if len(msg) > maxStoredErrorBytes {
		cut := maxStoredErrorBytes
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	if err := p.documentRepo.MarkFailed(nil, documentID, msg); err != nil {
		p.log.Error("Failed to mark document failed", "document_id", documentID, "error", err)
	}
}

// repoProgressSink fans stage/percent updates out to the document row and
// the in-memory tracker.
type repoProgressSink struct {
	log        *logger.Logger
	repo       repos.DocumentRepo
	tracker    *JobTracker
	documentID uuid.UUID
}

func (s *repoProgressSink) Report(stage string, percent int, detail string) {
	s.tracker.Update(s.documentID, stage, percent)
	if stage == "completed" {
		// MarkCompleted owns the terminal row update.
		return
	}
	if err := s.repo.UpdateStageProgress(nil, s.documentID, stage, percent); err != nil {
		s.log.Warn("Progress update failed", "stage", stage, "percent", percent, "error", err)
	}
	if detail != "" {
		s.log.Debug("Progress", "stage", stage, "percent", percent, "detail", detail)
	}
}
