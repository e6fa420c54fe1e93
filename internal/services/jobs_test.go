package services

import (
	"testing"

	"github.com/google/uuid"
)

func TestJobTrackerLifecycle(t *testing.T) {
	tr := NewJobTracker()
	id := uuid.New()

	if tr.InFlight() != 0 {
		t.Fatalf("in flight: want=0 got=%d", tr.InFlight())
	}
	tr.Start(id, "uploads/a.pdf", MediaClassDocument)
	if tr.InFlight() != 1 {
		t.Fatalf("in flight: want=1 got=%d", tr.InFlight())
	}

	tr.Update(id, "embedding", 60)
	snap := tr.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len: want=1 got=%d", len(snap))
	}
	if snap[0].Stage != "embedding" || snap[0].Progress != 60 {
		t.Fatalf("snapshot: got stage=%q progress=%d", snap[0].Stage, snap[0].Progress)
	}

	tr.Finish(id)
	if tr.InFlight() != 0 {
		t.Fatalf("in flight after finish: want=0 got=%d", tr.InFlight())
	}
}

func TestJobTrackerProgressMonotonic(t *testing.T) {
	tr := NewJobTracker()
	id := uuid.New()
	tr.Start(id, "uploads/a.pdf", MediaClassDocument)

	tr.Update(id, "embedding", 60)
	tr.Update(id, "embedding", 40)
	snap := tr.Snapshot()
	if snap[0].Progress != 60 {
		t.Fatalf("progress regressed: want=60 got=%d", snap[0].Progress)
	}
}

func TestJobTrackerUpdateUnknownIDIsNoop(t *testing.T) {
	tr := NewJobTracker()
	tr.Update(uuid.New(), "embedding", 50)
	if tr.InFlight() != 0 {
		t.Fatalf("unknown id must not create a job")
	}
}
