package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/mediarag-backend/internal/types"
)

func testChunkStore(t *testing.T) *chunkStore {
	t.Helper()
	return &chunkStore{log: newTestLogger(t)}
}

func textDraft(index int) ChunkDraft {
	return ChunkDraft{
		Index:         index,
		Content:       "some content",
		EmbeddingType: types.EmbeddingTypeText,
		TextEmbedding: makeVector(types.TextEmbeddingDim, 0.1),
	}
}

func TestBuildRowValid(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New(), UserID: uuid.New()}

	draft := textDraft(0)
	draft.Metadata = map[string]interface{}{"media_class": "document"}
	row, err := s.buildRow(doc, draft, 0)
	if err != nil {
		t.Fatalf("buildRow: %v", err)
	}
	if row.DocumentID != doc.ID || row.UserID != doc.UserID {
		t.Fatalf("row ids not copied from document")
	}
	if row.ChunkIndex != 0 {
		t.Fatalf("chunk_index: want=0 got=%d", row.ChunkIndex)
	}
	if len(row.Metadata) == 0 {
		t.Fatalf("metadata should be marshaled")
	}
}

func TestBuildRowRejectsIndexGap(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New()}

	if _, err := s.buildRow(doc, textDraft(2), 1); err == nil {
		t.Fatalf("expected contiguity error")
	}
}

func TestBuildRowRejectsEmptyContent(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New()}

	draft := textDraft(0)
	draft.Content = "   "
	if _, err := s.buildRow(doc, draft, 0); err == nil {
		t.Fatalf("expected empty content error")
	}
}

func TestBuildRowRejectsUnknownEmbeddingType(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New()}

	draft := textDraft(0)
	draft.EmbeddingType = "audio"
	if _, err := s.buildRow(doc, draft, 0); err == nil {
		t.Fatalf("expected embedding type error")
	}
}

func TestBuildRowRejectsWrongDimensions(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New()}

	draft := textDraft(0)
	draft.TextEmbedding = makeVector(10, 0.1)
	if _, err := s.buildRow(doc, draft, 0); err == nil {
		t.Fatalf("expected text dimension error")
	}

	draft = textDraft(0)
	draft.EmbeddingType = types.EmbeddingTypeMultimodal
	draft.MultimodalEmbedding = makeVector(512, 0.2)
	if _, err := s.buildRow(doc, draft, 0); err == nil {
		t.Fatalf("expected multimodal dimension error")
	}
}

func TestBuildRowRejectsMissingEmbeddings(t *testing.T) {
	s := testChunkStore(t)
	doc := &types.Document{ID: uuid.New()}

	draft := textDraft(0)
	draft.TextEmbedding = nil
	if _, err := s.buildRow(doc, draft, 0); err == nil {
		t.Fatalf("expected missing embedding error")
	}
}
