package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// documentPipeline extracts text (Document AI first, native extraction as
// fallback), chunks it, and text-embeds every chunk.
type documentPipeline struct {
	log       *logger.Logger
	docAI     gcp.DocAI
	embedder  EmbeddingProvider
	chunkSize int
	overlap   int
	batchSize int
}

func NewDocumentPipeline(log *logger.Logger, docAI gcp.DocAI, embedder EmbeddingProvider) Pipeline {
	return &documentPipeline{
		log:       log.With("service", "DocumentPipeline"),
		docAI:     docAI,
		embedder:  embedder,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		batchSize: 16,
	}
}

func (p *documentPipeline) Run(ctx context.Context, in PipelineInput) ([]ChunkDraft, error) {
	in.Progress.Stage("extracting")

	data, err := os.ReadFile(in.LocalPath)
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, "reading downloaded document", err)
	}

	text, extractor, err := p.extractText(ctx, in, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewPipelineError(ClassExtraction, "document produced no text", nil)
	}

	in.Progress.Stage("chunking")
	pieces := SplitText(text, p.chunkSize, p.overlap)
	if len(pieces) == 0 {
		return nil, NewPipelineError(ClassExtraction, "chunker produced no output", nil)
	}

	contents := make([]string, len(pieces))
	for i, piece := range pieces {
		contents[i] = piece.Text
	}

	in.Progress.Stage("embedding")
	vectors := make([]types.Vector, 0, len(contents))
	for start := 0; start < len(contents); start += p.batchSize {
		end := start + p.batchSize
		if end > len(contents) {
			end = len(contents)
		}
		batch, err := p.embedder.EmbedTexts(ctx, contents[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
		in.Progress.StageStep("embedding", end, len(contents))
	}

	drafts := make([]ChunkDraft, len(pieces))
	for i, piece := range pieces {
		drafts[i] = ChunkDraft{
			Index:         i,
			Content:       piece.Text,
			EmbeddingType: types.EmbeddingTypeText,
			TextEmbedding: vectors[i],
			Metadata: map[string]interface{}{
				"media_class":     string(MediaClassDocument),
				"source_filename": in.Document.Filename,
				"chunk_index":     i,
				"total_chunks":    len(pieces),
				"extractor":       extractor,
				"char_start":      piece.CharStart,
				"char_end":        piece.CharEnd,
			},
		}
	}
	return drafts, nil
}

func (p *documentPipeline) extractText(ctx context.Context, in PipelineInput, data []byte) (string, string, error) {
	if p.docAI != nil && p.docAI.Configured() && docAISupports(in.MimeType) {
		result, err := p.docAI.ProcessBytes(ctx, data, in.MimeType)
		if err == nil && result != nil {
			if text := joinDocAIPages(result); strings.TrimSpace(text) != "" {
				return text, "gcp_documentai", nil
			}
		}
		if err != nil {
			p.log.Warn("Document AI extraction failed, falling back to native extraction",
				"document_id", in.Document.ID, "error", err)
		}
	}

	text, err := ExtractNativeText(in.Document.Filename, in.MimeType, data)
	if err != nil {
		return "", "", NewPipelineError(ClassExtraction, fmt.Sprintf("native extraction of %s failed", in.Document.Filename), err)
	}
	return text, "native", nil
}

func joinDocAIPages(result *gcp.DocAIResult) string {
	var sb strings.Builder
	for _, page := range result.Pages {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Text)
	}
	for _, table := range result.Tables {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(table.Markdown)
	}
	return sb.String()
}

// docAISupports lists the types the online processor accepts; everything
// else goes straight to native extraction.
func docAISupports(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "application/pdf", "image/tiff", "image/gif":
		return true
	default:
		return false
	}
}
