package vertex

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/yungbote/mediarag-backend/internal/types"
)

// Embedder calls the Vertex AI text and multimodal embedding models over the
// REST :predict surface.
type Embedder struct {
	client          *Client
	textModel       string
	multimodalModel string
}

func NewEmbedder(client *Client, textModel, multimodalModel string) *Embedder {
	if textModel == "" {
		textModel = "text-embedding-004"
	}
	if multimodalModel == "" {
		multimodalModel = "multimodalembedding@001"
	}
	return &Embedder{client: client, textModel: textModel, multimodalModel: multimodalModel}
}

func (e *Embedder) TextModel() string       { return e.textModel }
func (e *Embedder) MultimodalModel() string { return e.multimodalModel }

type textPredictRequest struct {
	Instances []textInstance `json:"instances"`
}

type textInstance struct {
	Content string `json:"content"`
}

type textPredictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

func (e *Embedder) EmbedText(ctx context.Context, text string) (types.Vector, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]types.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := textPredictRequest{Instances: make([]textInstance, 0, len(texts))}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("cannot embed empty text")
		}
		req.Instances = append(req.Instances, textInstance{Content: t})
	}

	var resp textPredictResponse
	if err := e.client.postJSON(ctx, e.client.modelURL(e.textModel, "predict"), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("text embedding: want %d predictions, got %d", len(texts), len(resp.Predictions))
	}

	out := make([]types.Vector, 0, len(texts))
	for i, p := range resp.Predictions {
		if len(p.Embeddings.Values) != types.TextEmbeddingDim {
			return nil, fmt.Errorf("text embedding %d: want dimension %d, got %d",
				i, types.TextEmbeddingDim, len(p.Embeddings.Values))
		}
		out = append(out, types.Vector(p.Embeddings.Values))
	}
	return out, nil
}

type multimodalPredictRequest struct {
	Instances []multimodalInstance `json:"instances"`
}

type multimodalInstance struct {
	Text  string           `json:"text,omitempty"`
	Image *inlineMediaData `json:"image,omitempty"`
	Video *inlineMediaData `json:"video,omitempty"`
}

type inlineMediaData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type multimodalPredictResponse struct {
	Predictions []struct {
		TextEmbedding   []float32 `json:"textEmbedding"`
		ImageEmbedding  []float32 `json:"imageEmbedding"`
		VideoEmbeddings []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"videoEmbeddings"`
	} `json:"predictions"`
}

// EmbedMedia returns the 1408-d multimodal embedding of raw media bytes.
// contextText, when present, must already be trimmed to the model's
// contextual-text budget by the caller.
func (e *Embedder) EmbedMedia(ctx context.Context, media []byte, mimeType, contextText string) (types.Vector, error) {
	if len(media) == 0 {
		return nil, fmt.Errorf("cannot embed empty media")
	}

	inst := multimodalInstance{Text: contextText}
	encoded := &inlineMediaData{BytesBase64Encoded: base64.StdEncoding.EncodeToString(media)}
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		inst.Video = encoded
	default:
		inst.Image = encoded
	}

	var resp multimodalPredictResponse
	req := multimodalPredictRequest{Instances: []multimodalInstance{inst}}
	if err := e.client.postJSON(ctx, e.client.modelURL(e.multimodalModel, "predict"), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("multimodal embedding: empty prediction set")
	}

	p := resp.Predictions[0]
	var values []float32
	switch {
	case inst.Video != nil && len(p.VideoEmbeddings) > 0:
		values = p.VideoEmbeddings[0].Embedding
	case len(p.ImageEmbedding) > 0:
		values = p.ImageEmbedding
	case len(p.TextEmbedding) > 0:
		values = p.TextEmbedding
	}
	if len(values) != types.MultimodalEmbeddingDim {
		return nil, fmt.Errorf("multimodal embedding: want dimension %d, got %d",
			types.MultimodalEmbeddingDim, len(values))
	}
	return types.Vector(values), nil
}

// EmbedTextMultimodal embeds a text query into the shared 1408-d multimodal
// space for cross-modal search.
func (e *Embedder) EmbedTextMultimodal(ctx context.Context, text string) (types.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	var resp multimodalPredictResponse
	req := multimodalPredictRequest{Instances: []multimodalInstance{{Text: text}}}
	if err := e.client.postJSON(ctx, e.client.modelURL(e.multimodalModel, "predict"), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0].TextEmbedding) != types.MultimodalEmbeddingDim {
		return nil, fmt.Errorf("multimodal text embedding: bad prediction shape")
	}
	return types.Vector(resp.Predictions[0].TextEmbedding), nil
}
