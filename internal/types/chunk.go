package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EmbeddingTypeText       = "text"
	EmbeddingTypeMultimodal = "multimodal"

	TextEmbeddingDim       = 768
	MultimodalEmbeddingDim = 1408
)

type Chunk struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_chunk_document_index,priority:1" json:"document_id"`
	ChunkIndex          int            `gorm:"not null;uniqueIndex:ux_chunk_document_index,priority:2" json:"chunk_index"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Content             string         `gorm:"not null" json:"content"`
	Context             *string        `json:"context,omitempty"`
	Metadata            datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	EmbeddingType       string         `gorm:"not null" json:"embedding_type"`
	TextEmbedding       Vector         `gorm:"type:vector(768)" json:"-"`
	MultimodalEmbedding Vector         `gorm:"type:vector(1408)" json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
}

func (Chunk) TableName() string { return "chunk" }
