package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

// OCR extracts printed text from image bytes. Used as a metadata enrichment
// signal on image chunks, never as the chunk content itself.
type OCR interface {
	DetectText(ctx context.Context, imageData []byte) (string, error)
	Close() error
}

// imageAnnotator is the slice of the Vision client the OCR service calls.
// Satisfied by *vision.ImageAnnotatorClient.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

type ocrService struct {
	log    *logger.Logger
	client imageAnnotator
}

func NewOCR(log *logger.Logger) (OCR, error) {
	slog := log.With("service", "gcp.OCR")
	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	slog.Info("Vision OCR initialized")
	return &ocrService{log: slog, client: client}, nil
}

func (s *ocrService) DetectText(ctx context.Context, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: imageData},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	result := resp.GetResponses()[0]
	if status := result.GetError(); status != nil {
		return "", fmt.Errorf("vision annotation: %s", status.GetMessage())
	}
	return strings.TrimSpace(result.GetFullTextAnnotation().GetText()), nil
}

func (s *ocrService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
