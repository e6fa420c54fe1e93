package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// SearchFilter narrows a vector search. Zero values mean "no filter".
type SearchFilter struct {
	UserID        uuid.UUID
	DocumentIDs   []uuid.UUID
	MediaClasses  []string
	MinSimilarity float64
	Limit         int
}

// SearchHit is one scored row from a single-column vector search.
type SearchHit struct {
	ID            uuid.UUID      `json:"id"`
	DocumentID    uuid.UUID      `json:"document_id"`
	ChunkIndex    int            `json:"chunk_index"`
	Content       string         `json:"content"`
	Context       *string        `json:"context,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	EmbeddingType string         `json:"embedding_type"`
	Similarity    float64        `json:"similarity"`
}

type ChunkRepo interface {
	CreateInBatches(tx *gorm.DB, chunks []*types.Chunk) error
	CountByDocument(tx *gorm.DB, documentID uuid.UUID) (int64, error)
	DeleteByDocument(tx *gorm.DB, documentID uuid.UUID) error
	SearchByTextEmbedding(ctx context.Context, query types.Vector, filter SearchFilter) ([]SearchHit, error)
	SearchByMultimodalEmbedding(ctx context.Context, query types.Vector, filter SearchFilter) ([]SearchHit, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, log *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: log.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// CreateInBatches inserts chunks in index order. Conflicts on
// (document_id, chunk_index) are skipped so a redelivered task that already
// wrote its chunks is a no-op.
func (r *chunkRepo) CreateInBatches(tx *gorm.DB, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.conn(tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
			DoNothing: true,
		}).
		CreateInBatches(chunks, 100).Error
	if err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}
	return nil
}

func (r *chunkRepo) CountByDocument(tx *gorm.DB, documentID uuid.UUID) (int64, error) {
	var n int64
	if err := r.conn(tx).Model(&types.Chunk{}).
		Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (r *chunkRepo) DeleteByDocument(tx *gorm.DB, documentID uuid.UUID) error {
	if err := r.conn(tx).Where("document_id = ?", documentID).
		Delete(&types.Chunk{}).Error; err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func (r *chunkRepo) SearchByTextEmbedding(ctx context.Context, query types.Vector, filter SearchFilter) ([]SearchHit, error) {
	return r.searchColumn(ctx, "text_embedding", query, filter)
}

func (r *chunkRepo) SearchByMultimodalEmbedding(ctx context.Context, query types.Vector, filter SearchFilter) ([]SearchHit, error) {
	return r.searchColumn(ctx, "multimodal_embedding", query, filter)
}

func (r *chunkRepo) searchColumn(ctx context.Context, column string, query types.Vector, filter SearchFilter) ([]SearchHit, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	qv := query.String()

	var sb strings.Builder
	args := []interface{}{qv}
	sb.WriteString(fmt.Sprintf(`SELECT id, document_id, chunk_index, content, context, metadata, embedding_type,
		1 - (%s <=> ?::vector) AS similarity
		FROM chunk WHERE %s IS NOT NULL`, column, column))
	if filter.UserID != uuid.Nil {
		sb.WriteString(" AND user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.DocumentIDs) > 0 {
		sb.WriteString(" AND document_id IN ?")
		args = append(args, filter.DocumentIDs)
	}
	if len(filter.MediaClasses) > 0 {
		sb.WriteString(" AND metadata->>'media_class' IN ?")
		args = append(args, filter.MediaClasses)
	}
	if filter.MinSimilarity > 0 {
		sb.WriteString(fmt.Sprintf(" AND 1 - (%s <=> ?::vector) >= ?", column))
		args = append(args, qv, filter.MinSimilarity)
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s <=> ?::vector LIMIT ?", column))
	args = append(args, qv, limit)

	var hits []SearchHit
	if err := r.db.WithContext(ctx).Raw(sb.String(), args...).Scan(&hits).Error; err != nil {
		return nil, fmt.Errorf("vector search on %s: %w", column, err)
	}
	return hits, nil
}
