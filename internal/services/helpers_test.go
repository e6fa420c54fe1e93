package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func makeVector(dim int, fill float32) types.Vector {
	v := make(types.Vector, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

// fakeEmbedder returns canned vectors, records inputs, and can fail either
// embedding space.
type fakeEmbedder struct {
	textErr error
	mmErr   error

	mu            sync.Mutex
	textInputs    []string
	mediaContexts []string
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) (types.Vector, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	f.mu.Lock()
	f.textInputs = append(f.textInputs, text)
	f.mu.Unlock()
	return makeVector(types.TextEmbeddingDim, 0.1), nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([]types.Vector, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	out := make([]types.Vector, len(texts))
	for i := range out {
		out[i] = makeVector(types.TextEmbeddingDim, 0.1)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedMedia(ctx context.Context, media []byte, mimeType, contextText string) (types.Vector, error) {
	if f.mmErr != nil {
		return nil, f.mmErr
	}
	f.mu.Lock()
	f.mediaContexts = append(f.mediaContexts, contextText)
	f.mu.Unlock()
	return makeVector(types.MultimodalEmbeddingDim, 0.2), nil
}

func (f *fakeEmbedder) EmbedQueryMultimodal(ctx context.Context, text string) (types.Vector, error) {
	if f.mmErr != nil {
		return nil, f.mmErr
	}
	return makeVector(types.MultimodalEmbeddingDim, 0.2), nil
}

func (f *fakeEmbedder) TextModel() string       { return "fake-text" }
func (f *fakeEmbedder) MultimodalModel() string { return "fake-multimodal" }

// fakeChunkRepo serves canned hits per embedding space.
type fakeChunkRepo struct {
	textHits []repos.SearchHit
	mmHits   []repos.SearchHit
	textErr  error
	mmErr    error

	created []*types.Chunk
}

func (f *fakeChunkRepo) CreateInBatches(tx *gorm.DB, chunks []*types.Chunk) error {
	f.created = append(f.created, chunks...)
	return nil
}

func (f *fakeChunkRepo) CountByDocument(tx *gorm.DB, documentID uuid.UUID) (int64, error) {
	return int64(len(f.created)), nil
}

func (f *fakeChunkRepo) DeleteByDocument(tx *gorm.DB, documentID uuid.UUID) error {
	return nil
}

func (f *fakeChunkRepo) SearchByTextEmbedding(ctx context.Context, query types.Vector, filter repos.SearchFilter) ([]repos.SearchHit, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	return f.textHits, nil
}

func (f *fakeChunkRepo) SearchByMultimodalEmbedding(ctx context.Context, query types.Vector, filter repos.SearchFilter) ([]repos.SearchHit, error) {
	if f.mmErr != nil {
		return nil, f.mmErr
	}
	return f.mmHits, nil
}

// fakeDocumentRepo keeps documents in a map keyed by both id and object key.
type fakeDocumentRepo struct {
	byID       map[uuid.UUID]*types.Document
	byKey      map[string]*types.Document
	notFoundN  int   // GetByObjectKey misses before the row appears
	keyErr     error // GetByObjectKey failure other than a missing row
	lookups    int
	failed     map[uuid.UUID]string
	completed  map[uuid.UUID]bool
	processing map[uuid.UUID]bool
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		byID:       map[uuid.UUID]*types.Document{},
		byKey:      map[string]*types.Document{},
		failed:     map[uuid.UUID]string{},
		completed:  map[uuid.UUID]bool{},
		processing: map[uuid.UUID]bool{},
	}
}

func (f *fakeDocumentRepo) add(doc *types.Document) {
	f.byID[doc.ID] = doc
	f.byKey[doc.ObjectKey] = doc
}

func (f *fakeDocumentRepo) Create(tx *gorm.DB, doc *types.Document) error {
	f.add(doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	doc, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("fetching document %s: %w", id, gorm.ErrRecordNotFound)
	}
	return doc, nil
}

func (f *fakeDocumentRepo) GetByObjectKey(tx *gorm.DB, objectKey string) (*types.Document, error) {
	f.lookups++
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	if f.lookups <= f.notFoundN {
		return nil, fmt.Errorf("fetching document by object key: %w", gorm.ErrRecordNotFound)
	}
	doc, ok := f.byKey[objectKey]
	if !ok {
		return nil, fmt.Errorf("fetching document by object key: %w", gorm.ErrRecordNotFound)
	}
	return doc, nil
}

func (f *fakeDocumentRepo) MarkProcessing(tx *gorm.DB, id uuid.UUID) error {
	doc, ok := f.byID[id]
	if !ok {
		return nil
	}
	if doc.State == types.DocumentStatePending || doc.State == types.DocumentStateFailed {
		f.processing[id] = true
		doc.State = types.DocumentStateProcessing
	}
	return nil
}

func (f *fakeDocumentRepo) UpdateStageProgress(tx *gorm.DB, id uuid.UUID, stage string, progress int) error {
	if doc, ok := f.byID[id]; ok {
		doc.Stage = stage
		if progress > doc.Progress {
			doc.Progress = progress
		}
	}
	return nil
}

func (f *fakeDocumentRepo) MarkCompleted(tx *gorm.DB, id uuid.UUID) error {
	doc, ok := f.byID[id]
	if !ok || doc.State != types.DocumentStateProcessing {
		return fmt.Errorf("completion update matched no processing row for document %s", id)
	}
	f.completed[id] = true
	doc.State = types.DocumentStateCompleted
	doc.Progress = 100
	return nil
}

func (f *fakeDocumentRepo) MarkFailed(tx *gorm.DB, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	if doc, ok := f.byID[id]; ok {
		doc.State = types.DocumentStateFailed
	}
	return nil
}

// fakeTranscriber serves one canned transcript for every file.
type fakeTranscriber struct {
	result *TranscriptResult
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path, mimeType string) (*TranscriptResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTranscriber) Engine() string { return "fake" }

// fakeDescriber serves one canned description for every image or segment.
type fakeDescriber struct {
	description string
	err         error
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.description, nil
}

func (f *fakeDescriber) DescribeVideoFile(ctx context.Context, path, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.description, nil
}

func (f *fakeDescriber) Model() string { return "fake-describer" }

// fakeTaskQueue records envelopes and can be told to fail.
type fakeTaskQueue struct {
	enqueued []types.TaskEnvelope
	err      error
}

func (f *fakeTaskQueue) EnqueueProcessTask(ctx context.Context, envelope types.TaskEnvelope) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, envelope)
	return fmt.Sprintf("task-%d", len(f.enqueued)), nil
}

func (f *fakeTaskQueue) Close() error { return nil }
