package gcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/genproto/googleapis/rpc/status"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

type fakeAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error

	lastReq *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error { return nil }

func newTestOCR(t *testing.T, annotator imageAnnotator) *ocrService {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return &ocrService{log: log, client: annotator}
}

func TestDetectTextReturnsFullTextAnnotation(t *testing.T) {
	annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "  Quarterly Report\n2024  "},
		}},
	}}
	ocr := newTestOCR(t, annotator)

	got, err := ocr.DetectText(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("DetectText: %v", err)
	}
	if got != "Quarterly Report\n2024" {
		t.Fatalf("text: want=%q got=%q", "Quarterly Report\n2024", got)
	}

	req := annotator.lastReq
	if req == nil || len(req.GetRequests()) != 1 {
		t.Fatalf("expected one annotate request, got %v", req)
	}
	features := req.GetRequests()[0].GetFeatures()
	if len(features) != 1 || features[0].GetType() != visionpb.Feature_DOCUMENT_TEXT_DETECTION {
		t.Fatalf("feature: want DOCUMENT_TEXT_DETECTION got %v", features)
	}
}

func TestDetectTextEmptyInputSkipsCall(t *testing.T) {
	annotator := &fakeAnnotator{}
	ocr := newTestOCR(t, annotator)

	got, err := ocr.DetectText(context.Background(), nil)
	if err != nil {
		t.Fatalf("DetectText: %v", err)
	}
	if got != "" {
		t.Fatalf("text: want empty got %q", got)
	}
	if annotator.lastReq != nil {
		t.Fatalf("empty input must not hit the API")
	}
}

func TestDetectTextPropagatesCallError(t *testing.T) {
	ocr := newTestOCR(t, &fakeAnnotator{err: errors.New("rpc unavailable")})

	if _, err := ocr.DetectText(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected call error")
	}
}

func TestDetectTextSurfacesPerImageError(t *testing.T) {
	annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			Error: &status.Status{Code: 3, Message: "bad image payload"},
		}},
	}}
	ocr := newTestOCR(t, annotator)

	_, err := ocr.DetectText(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "bad image payload") {
		t.Fatalf("expected per-image error, got %v", err)
	}
}
