package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
)

// speechTranscription is the Speech-to-Text engine, selected with
// TRANSCRIPTION_ENGINE=speech. Media is first normalized to 16kHz mono WAV
// so one recognition config covers every input container.
type speechTranscription struct {
	log        *logger.Logger
	client     *speech.Client
	tools      localmedia.Tools
	language   string
	maxRetries int
}

func NewSpeechTranscription(log *logger.Logger, tools localmedia.Tools) (TranscriptionProvider, error) {
	slog := log.With("service", "SpeechTranscription")

	client, err := speech.NewClient(context.Background(), gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	language := strings.TrimSpace(os.Getenv("SPEECH_LANGUAGE_CODE"))
	if language == "" {
		language = "en-US"
	}

	return &speechTranscription{
		log:        slog,
		client:     client,
		tools:      tools,
		language:   language,
		maxRetries: 4,
	}, nil
}

func (p *speechTranscription) Engine() string { return "speech" }

func (p *speechTranscription) TranscribeFile(ctx context.Context, path, mimeType string) (*TranscriptResult, error) {
	wavPath := path
	if !strings.HasSuffix(strings.ToLower(path), ".wav") {
		out := filepath.Join(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"_stt.wav")
		if err := p.tools.ExtractAudio(ctx, path, out, localmedia.AudioExtractOptions{}); err != nil {
			return nil, NewPipelineError(ClassTranscription, "normalizing audio for speech engine", err)
		}
		defer os.Remove(out)
		wavPath = out
	}

	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, NewPipelineError(ClassTranscription, "reading normalized audio", err)
	}
	if len(audio) == 0 {
		return &TranscriptResult{HasAudio: false, Model: "gcp_speech"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            16000,
			AudioChannelCount:          1,
			LanguageCode:               p.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := p.retryLR(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := p.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, NewPipelineError(ClassTranscription, "speech longrunningrecognize", err)
	}

	return p.parseResponse(resp), nil
}

func (p *speechTranscription) parseResponse(resp *speechpb.LongRunningRecognizeResponse) *TranscriptResult {
	out := &TranscriptResult{Model: "gcp_speech", Language: p.language}
	if resp == nil {
		return out
	}

	var sb strings.Builder
	var confSum float64
	var confN int
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		t := strings.TrimSpace(alt.GetTranscript())
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(t)
		if alt.GetConfidence() > 0 {
			confSum += float64(alt.GetConfidence())
			confN++
		}
		if lang := strings.TrimSpace(result.GetLanguageCode()); lang != "" {
			out.Language = lang
		}
	}

	out.Text = sb.String()
	out.HasAudio = out.Text != ""
	if confN > 0 {
		out.Confidence = confSum / float64(confN)
	}
	return out
}

func (p *speechTranscription) retryLR(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(float64(500*time.Millisecond)*math.Pow(2, float64(attempt-1)), float64(8*time.Second)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryableGRPC(err) {
			return nil, err
		}
		p.log.Warn("Retriable speech error", "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func isRetryableGRPC(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	default:
		return false
	}
}
