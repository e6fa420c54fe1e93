package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// imagePipeline produces exactly one chunk per image: a dense visual
// description as content, dual embeddings (768-d of the description, 1408-d
// of the raw pixels), and optional OCR text as metadata.
type imagePipeline struct {
	log       *logger.Logger
	describer DescriptionProvider
	embedder  EmbeddingProvider
	ocr       gcp.OCR // nil disables OCR enrichment
}

func NewImagePipeline(log *logger.Logger, describer DescriptionProvider, embedder EmbeddingProvider, ocr gcp.OCR) Pipeline {
	return &imagePipeline{
		log:       log.With("service", "ImagePipeline"),
		describer: describer,
		embedder:  embedder,
		ocr:       ocr,
	}
}

func (p *imagePipeline) Run(ctx context.Context, in PipelineInput) ([]ChunkDraft, error) {
	data, err := os.ReadFile(in.LocalPath)
	if err != nil {
		return nil, NewPipelineError(ClassExtraction, "reading downloaded image", err)
	}

	width, height, format := probeImage(data)

	metadata := map[string]interface{}{
		"media_class":     string(MediaClassImage),
		"source_filename": in.Document.Filename,
		"format":          format,
		"width":           width,
		"height":          height,
	}

	in.Progress.Stage("describing")
	content, err := p.describer.DescribeImage(ctx, data, in.MimeType)
	if err != nil {
		// A failed description degrades the chunk, it does not fail the job.
		p.log.Warn("Image description failed, storing placeholder",
			"document_id", in.Document.ID, "error", err)
		content = fmt.Sprintf("Image file %s (%s, %dx%d). No visual description available.",
			in.Document.Filename, format, width, height)
		metadata["description_failed"] = true
	} else {
		metadata["description_model"] = p.describer.Model()
	}

	if p.ocr != nil {
		if ocrText, ocrErr := p.ocr.DetectText(ctx, data); ocrErr != nil {
			p.log.Warn("OCR enrichment failed", "document_id", in.Document.ID, "error", ocrErr)
		} else if ocrText != "" {
			metadata["ocr_text"] = ocrText
		}
	}

	in.Progress.Stage("embedding")
	var textVec, mmVec types.Vector
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := p.embedder.EmbedText(gctx, content)
		if err != nil {
			return err
		}
		textVec = vec
		return nil
	})
	g.Go(func() error {
		vec, err := p.embedder.EmbedMedia(gctx, data, in.MimeType, content)
		if err != nil {
			return err
		}
		mmVec = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return []ChunkDraft{{
		Index:               0,
		Content:             content,
		EmbeddingType:       types.EmbeddingTypeMultimodal,
		TextEmbedding:       textVec,
		MultimodalEmbedding: mmVec,
		Metadata:            metadata,
	}}, nil
}

// probeImage decodes just the header. Unknown formats fall back to the
// extension with zero dimensions rather than failing the pipeline.
func probeImage(data []byte) (width, height int, format string) {
	cfg, fmtName, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "unknown"
	}
	return cfg.Width, cfg.Height, strings.ToLower(fmtName)
}
