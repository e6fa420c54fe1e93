package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/services"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// ProcessTaskHandler is the queue push target. It accepts at most
// maxConcurrent jobs; everything beyond that gets a 429 so the queue
// redelivers later instead of piling work onto a busy instance.
type ProcessTaskHandler struct {
	log         *logger.Logger
	processor   services.Processor
	slots       *semaphore.Weighted
	jobDeadline time.Duration
}

func NewProcessTaskHandler(log *logger.Logger, processor services.Processor, maxConcurrent int, jobDeadline time.Duration) *ProcessTaskHandler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if jobDeadline <= 0 {
		jobDeadline = time.Hour
	}
	return &ProcessTaskHandler{
		log:         log.With("handler", "ProcessTaskHandler"),
		processor:   processor,
		slots:       semaphore.NewWeighted(int64(maxConcurrent)),
		jobDeadline: jobDeadline,
	}
}

// POST /process-task
func (h *ProcessTaskHandler) Handle(c *gin.Context) {
	var envelope types.TaskEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_body", err)
		return
	}
	if err := envelope.Validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_envelope", err)
		return
	}

	if !h.slots.TryAcquire(1) {
		c.JSON(http.StatusTooManyRequests, gin.H{"status": "busy"})
		return
	}

	// Respond before the work: the queue only needs to know the task
	// landed. Completion and failure are recorded on the document row.
	go h.run(envelope)
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "document_id": envelope.DocumentID})
}

func (h *ProcessTaskHandler) run(envelope types.TaskEnvelope) {
	defer h.slots.Release(1)
	log := h.log.With("document_id", envelope.DocumentID, "object_key", envelope.ObjectKey)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in processing job", "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.jobDeadline)
	defer cancel()

	started := time.Now()
	if err := h.processor.ProcessTask(ctx, envelope); err != nil {
		log.Error("Processing job failed",
			"error", err,
			"error_class", string(services.ClassOf(err)),
			"retriable", services.IsRetriable(err),
			"elapsed", time.Since(started).String(),
		)
		return
	}
	log.Info("Processing job finished", "elapsed", time.Since(started).String())
}
