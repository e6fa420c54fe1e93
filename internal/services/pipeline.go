package services

import (
	"context"

	"github.com/yungbote/mediarag-backend/internal/types"
)

// ChunkDraft is a fully-embedded chunk waiting to be persisted. Index
// values must be contiguous from 0 within one pipeline run.
type ChunkDraft struct {
	Index               int
	Content             string
	Context             *string
	Metadata            map[string]interface{}
	EmbeddingType       string
	TextEmbedding       types.Vector
	MultimodalEmbedding types.Vector
}

// PipelineInput is what the media dispatcher hands a pipeline: the document
// row, the downloaded file, and a progress reporter scoped to the job.
type PipelineInput struct {
	Document  *types.Document
	LocalPath string
	MimeType  string
	Progress  *ProgressReporter
}

// Pipeline turns one downloaded media file into embedded chunk drafts.
type Pipeline interface {
	Run(ctx context.Context, in PipelineInput) ([]ChunkDraft, error)
}

func strPtr(s string) *string { return &s }
