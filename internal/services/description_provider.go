package services

import (
	"context"
	"os"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/vertex"
)

const imageDescriptionPrompt = `Describe this image in dense, factual prose for a search index.
Cover: the overall scene, every object and person visible, any readable text,
charts or diagrams and what they show, colors and layout. Do not speculate,
do not address the reader, do not add preamble. Output only the description.`

const videoSegmentDescriptionPrompt = `Describe the visual content of this video clip in dense, factual prose
for a search index. Cover: the scene, actions, people and objects, any
on-screen text or slides, and notable transitions. Do not transcribe speech.
Do not add preamble. Output only the description.`

// DescriptionProvider produces dense visual descriptions used as chunk
// content for images and as visual context for video segments.
type DescriptionProvider interface {
	DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
	DescribeVideoFile(ctx context.Context, path, mimeType string) (string, error)
	Model() string
}

type descriptionProvider struct {
	log    *logger.Logger
	gemini *vertex.Gemini
}

func NewDescriptionProvider(log *logger.Logger, gemini *vertex.Gemini) DescriptionProvider {
	return &descriptionProvider{
		log:    log.With("service", "DescriptionProvider"),
		gemini: gemini,
	}
}

func (p *descriptionProvider) Model() string { return p.gemini.Model() }

func (p *descriptionProvider) DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	out, err := p.gemini.GenerateFromMedia(ctx, imageDescriptionPrompt, imageData, mimeType)
	if err != nil {
		return "", NewPipelineError(ClassDescription, "image description failed", err)
	}
	return out, nil
}

func (p *descriptionProvider) DescribeVideoFile(ctx context.Context, path, mimeType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", NewPipelineError(ClassDescription, "reading video segment", err)
	}
	out, err := p.gemini.GenerateFromMedia(ctx, videoSegmentDescriptionPrompt, data, mimeType)
	if err != nil {
		return "", NewPipelineError(ClassDescription, "video segment description failed", err)
	}
	return out, nil
}
