package repos

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/types"
)

type DocumentRepo interface {
	Create(tx *gorm.DB, doc *types.Document) error
	GetByID(tx *gorm.DB, id uuid.UUID) (*types.Document, error)
	GetByObjectKey(tx *gorm.DB, objectKey string) (*types.Document, error)
	MarkProcessing(tx *gorm.DB, id uuid.UUID) error
	UpdateStageProgress(tx *gorm.DB, id uuid.UUID, stage string, progress int) error
	MarkCompleted(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(tx *gorm.DB, id uuid.UUID, errMsg string) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, log *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: log.With("repo", "DocumentRepo")}
}

func (r *documentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepo) Create(tx *gorm.DB, doc *types.Document) error {
	if err := r.conn(tx).Create(doc).Error; err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	if err := r.conn(tx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("fetching document %s: %w", id, err)
	}
	return &doc, nil
}

func (r *documentRepo) GetByObjectKey(tx *gorm.DB, objectKey string) (*types.Document, error) {
	var doc types.Document
	if err := r.conn(tx).First(&doc, "object_key = ?", objectKey).Error; err != nil {
		return nil, fmt.Errorf("fetching document by object key: %w", err)
	}
	return &doc, nil
}

// MarkProcessing claims a pending row, or reclaims a failed one so a
// redelivered task after a failed attempt runs as a normal attempt. Rows in
// processing or completed are left alone.
func (r *documentRepo) MarkProcessing(tx *gorm.DB, id uuid.UUID) error {
	res := r.conn(tx).Model(&types.Document{}).
		Where("id = ? AND state IN ?", id, []string{types.DocumentStatePending, types.DocumentStateFailed}).
		Updates(map[string]interface{}{
			"state":    types.DocumentStateProcessing,
			"stage":    "downloading",
			"progress": 0,
			"error":    "",
		})
	if res.Error != nil {
		return fmt.Errorf("marking document processing: %w", res.Error)
	}
	return nil
}

// UpdateStageProgress only ever moves progress forward.
func (r *documentRepo) UpdateStageProgress(tx *gorm.DB, id uuid.UUID, stage string, progress int) error {
	res := r.conn(tx).Model(&types.Document{}).
		Where("id = ? AND state = ? AND progress <= ?", id, types.DocumentStateProcessing, progress).
		Updates(map[string]interface{}{"stage": stage, "progress": progress})
	if res.Error != nil {
		return fmt.Errorf("updating document progress: %w", res.Error)
	}
	return nil
}

func (r *documentRepo) MarkCompleted(tx *gorm.DB, id uuid.UUID) error {
	res := r.conn(tx).Model(&types.Document{}).
		Where("id = ? AND state = ?", id, types.DocumentStateProcessing).
		Updates(map[string]interface{}{
			"state":    types.DocumentStateCompleted,
			"stage":    "completed",
			"progress": 100,
		})
	if res.Error != nil {
		return fmt.Errorf("marking document completed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// The document was not in processing, so its chunks must not land
		// either. Erroring here rolls back the surrounding transaction.
		return fmt.Errorf("completion update matched no processing row for document %s", id)
	}
	return nil
}

func (r *documentRepo) MarkFailed(tx *gorm.DB, id uuid.UUID, errMsg string) error {
	res := r.conn(tx).Model(&types.Document{}).
		Where("id = ? AND state NOT IN ?", id, []string{types.DocumentStateCompleted, types.DocumentStateFailed}).
		Updates(map[string]interface{}{
			"state":    types.DocumentStateFailed,
			"stage":    "failed",
			"progress": 0,
			"error":    errMsg,
		})
	if res.Error != nil {
		return fmt.Errorf("marking document failed: %w", res.Error)
	}
	return nil
}
