package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mediarag-backend/internal/types"
)

func newTestDispatcher(t *testing.T, queue *fakeTaskQueue, repo *fakeDocumentRepo, bucket string) *dispatcher {
	t.Helper()
	return &dispatcher{
		log:             newTestLogger(t).With("service", "Dispatcher"),
		queue:           queue,
		documentRepo:    repo,
		bucket:          bucket,
		resolveAttempts: 3,
		resolveBackoff:  time.Millisecond,
	}
}

func pendingDoc(objectKey string) *types.Document {
	return &types.Document{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ObjectKey: objectKey,
		MimeType:  "application/pdf",
		Size:      1234,
		State:     types.DocumentStatePending,
	}
}

func TestDispatcherEnqueuesForPendingDocument(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := pendingDoc("uploads/u1/report.pdf")
	repo.add(doc)
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket:      "media-bucket",
		Name:        doc.ObjectKey,
		Size:        "4096",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if !enqueued {
		t.Fatalf("enqueued: want=true got=false")
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("queue tasks: want=1 got=%d", len(queue.enqueued))
	}
	env := queue.enqueued[0]
	if env.DocumentID != doc.ID {
		t.Fatalf("document_id: want=%s got=%s", doc.ID, env.DocumentID)
	}
	if env.Size != 4096 {
		t.Fatalf("size should come from the event: want=4096 got=%d", env.Size)
	}
}

func TestDispatcherIgnoresForeignBucket(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.add(pendingDoc("uploads/x.pdf"))
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "other-bucket",
		Name:   "uploads/x.pdf",
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if enqueued || len(queue.enqueued) != 0 {
		t.Fatalf("foreign bucket must be acked without enqueue")
	}
}

func TestDispatcherAcksMalformedEvent(t *testing.T) {
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, newFakeDocumentRepo(), "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if enqueued {
		t.Fatalf("malformed event must not enqueue")
	}
}

func TestDispatcherRetriesDocumentResolution(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := pendingDoc("uploads/late.pdf")
	repo.add(doc)
	repo.notFoundN = 2 // row appears on the third lookup
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
		Name:   doc.ObjectKey,
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if !enqueued {
		t.Fatalf("enqueued: want=true got=false")
	}
	if repo.lookups != 3 {
		t.Fatalf("lookups: want=3 got=%d", repo.lookups)
	}
}

func TestDispatcherAcksWhenDocumentNeverAppears(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.notFoundN = 100
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
		Name:   "uploads/orphan.pdf",
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if enqueued {
		t.Fatalf("unresolvable document must be acked without enqueue")
	}
	if repo.lookups != 3 {
		t.Fatalf("lookups: want=3 got=%d", repo.lookups)
	}
}

func TestDispatcherSurfacesResolutionFailure(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.keyErr = errors.New("connection refused")
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
		Name:   "uploads/x.pdf",
	})
	if err == nil {
		t.Fatalf("expected lookup failure to propagate for redelivery")
	}
	if enqueued || len(queue.enqueued) != 0 {
		t.Fatalf("lookup failure must not enqueue")
	}
	if repo.lookups != 3 {
		t.Fatalf("lookup should be retried: want=3 got=%d", repo.lookups)
	}
}

func TestDispatcherSkipsTerminalDocument(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := pendingDoc("uploads/done.pdf")
	doc.State = types.DocumentStateCompleted
	repo.add(doc)
	queue := &fakeTaskQueue{}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	enqueued, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
		Name:   doc.ObjectKey,
	})
	if err != nil {
		t.Fatalf("HandleObjectFinalized: %v", err)
	}
	if enqueued || len(queue.enqueued) != 0 {
		t.Fatalf("terminal document must not be re-enqueued")
	}
}

func TestDispatcherSurfacesEnqueueFailure(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := pendingDoc("uploads/retry.pdf")
	repo.add(doc)
	queue := &fakeTaskQueue{err: errors.New("queue unavailable")}
	d := newTestDispatcher(t, queue, repo, "media-bucket")

	_, err := d.HandleObjectFinalized(context.Background(), types.ObjectFinalizedEvent{
		Bucket: "media-bucket",
		Name:   doc.ObjectKey,
	})
	if err == nil {
		t.Fatalf("expected enqueue failure to propagate for redelivery")
	}
}
