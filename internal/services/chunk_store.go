package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// ChunkStore is the single write path into the chunk table. One document's
// chunks and its completion flip commit in one transaction, and conflicting
// inserts from a redelivered task are skipped, so redelivery is a no-op.
type ChunkStore interface {
	PersistDocumentChunks(ctx context.Context, doc *types.Document, drafts []ChunkDraft) error
}

type chunkStore struct {
	log          *logger.Logger
	db           *gorm.DB
	chunkRepo    repos.ChunkRepo
	documentRepo repos.DocumentRepo
}

func NewChunkStore(log *logger.Logger, db *gorm.DB, chunkRepo repos.ChunkRepo, documentRepo repos.DocumentRepo) ChunkStore {
	return &chunkStore{
		log:          log.With("service", "ChunkStore"),
		db:           db,
		chunkRepo:    chunkRepo,
		documentRepo: documentRepo,
	}
}

func (s *chunkStore) PersistDocumentChunks(ctx context.Context, doc *types.Document, drafts []ChunkDraft) error {
	if len(drafts) == 0 {
		return NewPipelineError(ClassStorage, "no chunks to persist", nil)
	}
	rows := make([]*types.Chunk, len(drafts))
	for i, draft := range drafts {
		row, err := s.buildRow(doc, draft, i)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.chunkRepo.CreateInBatches(tx, rows); err != nil {
			return err
		}
		return s.documentRepo.MarkCompleted(tx, doc.ID)
	})
	if err != nil {
		return NewPipelineError(ClassStorage, fmt.Sprintf("persisting %d chunks", len(rows)), err)
	}

	s.log.Info("Persisted document chunks", "document_id", doc.ID, "chunks", len(rows))
	return nil
}

// buildRow validates one draft against the table invariants before it gets
// anywhere near the database.
func (s *chunkStore) buildRow(doc *types.Document, draft ChunkDraft, position int) (*types.Chunk, error) {
	if draft.Index != position {
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk index %d at position %d breaks contiguity", draft.Index, position), nil)
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk %d has empty content", draft.Index), nil)
	}
	switch draft.EmbeddingType {
	case types.EmbeddingTypeText, types.EmbeddingTypeMultimodal:
	default:
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk %d has unknown embedding type %q", draft.Index, draft.EmbeddingType), nil)
	}
	if draft.TextEmbedding != nil && len(draft.TextEmbedding) != types.TextEmbeddingDim {
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk %d text embedding has dimension %d, want %d",
				draft.Index, len(draft.TextEmbedding), types.TextEmbeddingDim), nil)
	}
	if draft.MultimodalEmbedding != nil && len(draft.MultimodalEmbedding) != types.MultimodalEmbeddingDim {
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk %d multimodal embedding has dimension %d, want %d",
				draft.Index, len(draft.MultimodalEmbedding), types.MultimodalEmbeddingDim), nil)
	}
	if draft.TextEmbedding == nil && draft.MultimodalEmbedding == nil {
		return nil, NewPipelineError(ClassStorage,
			fmt.Sprintf("chunk %d carries no embedding", draft.Index), nil)
	}

	var metadata []byte
	if draft.Metadata != nil {
		b, err := json.Marshal(draft.Metadata)
		if err != nil {
			return nil, NewPipelineError(ClassStorage,
				fmt.Sprintf("marshaling chunk %d metadata", draft.Index), err)
		}
		metadata = b
	}

	return &types.Chunk{
		DocumentID:          doc.ID,
		ChunkIndex:          draft.Index,
		UserID:              doc.UserID,
		Content:             draft.Content,
		Context:             draft.Context,
		Metadata:            metadata,
		EmbeddingType:       draft.EmbeddingType,
		TextEmbedding:       draft.TextEmbedding,
		MultimodalEmbedding: draft.MultimodalEmbedding,
	}, nil
}
