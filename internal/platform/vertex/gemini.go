package vertex

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Gemini calls the generateContent surface for transcription and visual
// description prompts, with optional inline media.
type Gemini struct {
	client *Client
	model  string
}

func NewGemini(client *Client, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{client: client, model: model}
}

func (g *Gemini) Model() string { return g.model }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateText runs a text-only prompt and returns the first candidate text.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []geminiPart{{Text: prompt}}, "")
}

// GenerateFromMedia runs a prompt against inline media bytes.
func (g *Gemini) GenerateFromMedia(ctx context.Context, prompt string, media []byte, mimeType string) (string, error) {
	if len(media) == 0 {
		return "", fmt.Errorf("gemini: empty media")
	}
	parts := []geminiPart{
		{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(media),
		}},
		{Text: prompt},
	}
	return g.generate(ctx, parts, "")
}

// GenerateJSONFromMedia is GenerateFromMedia with a JSON response contract.
func (g *Gemini) GenerateJSONFromMedia(ctx context.Context, prompt string, media []byte, mimeType string) (string, error) {
	if len(media) == 0 {
		return "", fmt.Errorf("gemini: empty media")
	}
	parts := []geminiPart{
		{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(media),
		}},
		{Text: prompt},
	}
	return g.generate(ctx, parts, "application/json")
}

func (g *Gemini) generate(ctx context.Context, parts []geminiPart, responseMime string) (string, error) {
	temp := 0.1
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      &temp,
			MaxOutputTokens:  8192,
			ResponseMimeType: responseMime,
		},
	}

	var resp geminiResponse
	if err := g.client.postJSON(ctx, g.client.modelURL(g.model, "generateContent"), req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("gemini: empty candidate text (finish_reason=%s)", resp.Candidates[0].FinishReason)
	}
	return out, nil
}
