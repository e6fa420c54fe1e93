package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// Dispatcher turns object-finalized storage events into durable queue tasks.
// Every return of (false, nil) means "ack without enqueueing": wrong bucket,
// a document row that never appeared, or a document already past processing.
// The event source must never be left retrying something that cannot succeed;
// lookup and enqueue failures return an error so the event is redelivered.
type Dispatcher interface {
	HandleObjectFinalized(ctx context.Context, event types.ObjectFinalizedEvent) (bool, error)
}

type dispatcher struct {
	log          *logger.Logger
	queue        gcp.TaskQueue
	documentRepo repos.DocumentRepo
	bucket       string

	resolveAttempts int
	resolveBackoff  time.Duration
}

func NewDispatcher(log *logger.Logger, queue gcp.TaskQueue, documentRepo repos.DocumentRepo, bucket string) Dispatcher {
	return &dispatcher{
		log:             log.With("service", "Dispatcher"),
		queue:           queue,
		documentRepo:    documentRepo,
		bucket:          bucket,
		resolveAttempts: 5,
		resolveBackoff:  500 * time.Millisecond,
	}
}

func (d *dispatcher) HandleObjectFinalized(ctx context.Context, event types.ObjectFinalizedEvent) (bool, error) {
	if err := event.Validate(); err != nil {
		d.log.Warn("Dropping malformed object event", "error", err)
		return false, nil
	}
	log := d.log.With("bucket", event.Bucket, "object_key", event.Name)

	if d.bucket != "" && event.Bucket != d.bucket {
		log.Debug("Ignoring event for foreign bucket")
		return false, nil
	}

	doc, err := d.resolveDocument(ctx, event.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The upload row never showed up. Ack: redelivering the event
			// cannot create it.
			log.Warn("No document row for finalized object, dropping event", "error", err)
			return false, nil
		}
		// The lookup itself kept failing. Surface the error so the event
		// source redelivers once the database recovers.
		log.Error("Document resolution failed", "error", err)
		return false, err
	}
	if doc.State == types.DocumentStateCompleted || doc.State == types.DocumentStateFailed {
		log.Info("Document already terminal, dropping event", "state", doc.State)
		return false, nil
	}

	size := doc.Size
	if parsed, perr := strconv.ParseInt(strings.TrimSpace(event.Size), 10, 64); perr == nil && parsed > 0 {
		size = parsed
	}
	mimeType := event.ContentType
	if mimeType == "" {
		mimeType = doc.MimeType
	}

	envelope := types.TaskEnvelope{
		DocumentID: doc.ID,
		ObjectKey:  event.Name,
		MimeType:   mimeType,
		Size:       size,
		Attempt:    0,
	}
	if _, err := d.queue.EnqueueProcessTask(ctx, envelope); err != nil {
		// Enqueue failures are the one case worth an event redelivery.
		return false, err
	}
	return true, nil
}

// resolveDocument retries lookups with backoff. Missing rows are retried
// because the upload service commits its row after the object finalizes and
// the event can win that race; other lookup errors are retried as transients
// and the last one is returned when the budget runs out.
func (d *dispatcher) resolveDocument(ctx context.Context, objectKey string) (*types.Document, error) {
	var lastErr error
	for attempt := 0; attempt < d.resolveAttempts; attempt++ {
		if attempt > 0 {
			backoff := d.resolveBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		doc, err := d.documentRepo.GetByObjectKey(nil, objectKey)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
