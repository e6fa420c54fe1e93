package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TaskEnvelope is the durable-queue payload: everything the processor needs
// to run one document without re-reading the event source.
type TaskEnvelope struct {
	DocumentID uuid.UUID `json:"document_id"`
	ObjectKey  string    `json:"object_key"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Attempt    int       `json:"attempt"`
}

func (t TaskEnvelope) Validate() error {
	if t.DocumentID == uuid.Nil {
		return fmt.Errorf("task envelope: missing document_id")
	}
	if strings.TrimSpace(t.ObjectKey) == "" {
		return fmt.Errorf("task envelope: missing object_key")
	}
	if t.Size < 0 {
		return fmt.Errorf("task envelope: negative size %d", t.Size)
	}
	if t.Attempt < 0 {
		return fmt.Errorf("task envelope: negative attempt %d", t.Attempt)
	}
	return nil
}

// ObjectFinalizedEvent is the object-store notification shape. GCS delivers
// numeric fields as strings in both direct JSON and Pub/Sub push payloads.
type ObjectFinalizedEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	Size        string `json:"size"`
	ContentType string `json:"contentType"`
	Generation  string `json:"generation"`
	EventID     string `json:"eventId,omitempty"`
}

func (e ObjectFinalizedEvent) Validate() error {
	if strings.TrimSpace(e.Bucket) == "" {
		return fmt.Errorf("object event: missing bucket")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("object event: missing object name")
	}
	return nil
}
