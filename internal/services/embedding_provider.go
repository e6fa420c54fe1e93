package services

import (
	"context"
	"fmt"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/vertex"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// EmbeddingProvider produces the two embedding spaces the chunk store
// persists: 768-d text vectors and 1408-d multimodal vectors.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) (types.Vector, error)
	EmbedTexts(ctx context.Context, texts []string) ([]types.Vector, error)
	EmbedMedia(ctx context.Context, media []byte, mimeType, contextText string) (types.Vector, error)
	EmbedQueryMultimodal(ctx context.Context, text string) (types.Vector, error)
	TextModel() string
	MultimodalModel() string
}

type embeddingProvider struct {
	log           *logger.Logger
	embedder      *vertex.Embedder
	contextTokens int
}

func NewEmbeddingProvider(log *logger.Logger, embedder *vertex.Embedder, contextTokenLimit int) EmbeddingProvider {
	if contextTokenLimit <= 0 {
		contextTokenLimit = 32
	}
	return &embeddingProvider{
		log:           log.With("service", "EmbeddingProvider"),
		embedder:      embedder,
		contextTokens: contextTokenLimit,
	}
}

func (p *embeddingProvider) TextModel() string       { return p.embedder.TextModel() }
func (p *embeddingProvider) MultimodalModel() string { return p.embedder.MultimodalModel() }

func (p *embeddingProvider) EmbedText(ctx context.Context, text string) (types.Vector, error) {
	vec, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, NewPipelineError(ClassEmbedding, "text embedding failed", err)
	}
	return vec, nil
}

func (p *embeddingProvider) EmbedTexts(ctx context.Context, texts []string) ([]types.Vector, error) {
	vecs, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, NewPipelineError(ClassEmbedding, fmt.Sprintf("batch text embedding of %d inputs failed", len(texts)), err)
	}
	return vecs, nil
}

// EmbedMedia trims contextText to the model's contextual-text token budget
// before the call; the raw media bytes are passed through untouched.
func (p *embeddingProvider) EmbedMedia(ctx context.Context, media []byte, mimeType, contextText string) (types.Vector, error) {
	trimmed := TrimToTokenBudget(CollapseWhitespace(contextText), p.contextTokens)
	vec, err := p.embedder.EmbedMedia(ctx, media, mimeType, trimmed)
	if err != nil {
		return nil, NewPipelineError(ClassEmbedding, "multimodal embedding failed", err)
	}
	return vec, nil
}

func (p *embeddingProvider) EmbedQueryMultimodal(ctx context.Context, text string) (types.Vector, error) {
	vec, err := p.embedder.EmbedTextMultimodal(ctx, text)
	if err != nil {
		return nil, NewPipelineError(ClassEmbedding, "multimodal query embedding failed", err)
	}
	return vec, nil
}
