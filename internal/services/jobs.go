package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProcessingJob is the in-memory view of one in-flight task, surfaced on
// the health endpoint.
type ProcessingJob struct {
	DocumentID uuid.UUID  `json:"document_id"`
	ObjectKey  string     `json:"object_key"`
	MediaClass MediaClass `json:"media_class"`
	Stage      string     `json:"stage"`
	Progress   int        `json:"progress"`
	StartedAt  time.Time  `json:"started_at"`
}

// JobTracker keeps snapshots of in-flight jobs. Not persisted; a restart
// clears it and the queue redelivers.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*ProcessingJob
}

func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[uuid.UUID]*ProcessingJob)}
}

func (t *JobTracker) Start(documentID uuid.UUID, objectKey string, class MediaClass) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[documentID] = &ProcessingJob{
		DocumentID: documentID,
		ObjectKey:  objectKey,
		MediaClass: class,
		Stage:      "downloading",
		StartedAt:  time.Now().UTC(),
	}
}

func (t *JobTracker) Update(documentID uuid.UUID, stage string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[documentID]; ok {
		job.Stage = stage
		if progress > job.Progress {
			job.Progress = progress
		}
	}
}

func (t *JobTracker) Finish(documentID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, documentID)
}

func (t *JobTracker) Snapshot() []ProcessingJob {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ProcessingJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	return out
}

func (t *JobTracker) InFlight() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}
