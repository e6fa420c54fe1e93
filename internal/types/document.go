package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentStatePending    = "pending"
	DocumentStateProcessing = "processing"
	DocumentStateCompleted  = "completed"
	DocumentStateFailed     = "failed"
)

type Document struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename  string    `gorm:"not null" json:"filename"`
	ObjectKey string    `gorm:"not null;uniqueIndex" json:"object_key"`
	MimeType  string    `gorm:"not null" json:"mime_type"`
	Size      int64     `gorm:"not null" json:"size"`
	State     string    `gorm:"not null;default:'pending';index" json:"state"`
	Stage     string    `json:"stage"`
	Progress  int       `gorm:"not null;default:0" json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Document) TableName() string { return "document" }

// StateRank orders document states so transitions can be checked as
// monotonic: pending < processing < completed/failed.
func StateRank(state string) int {
	switch state {
	case DocumentStatePending:
		return 0
	case DocumentStateProcessing:
		return 1
	case DocumentStateCompleted, DocumentStateFailed:
		return 2
	default:
		return -1
	}
}
