package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/utils"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client is a thin REST client for Vertex AI predict/generateContent
// endpoints with bearer auth and capped-exponential retry.
type Client struct {
	log         *logger.Logger
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	projectID   string
	location    string
	maxRetries  int
	baseBackoff time.Duration
}

func NewClient(log *logger.Logger, projectID, location string) (*Client, error) {
	slog := log.With("service", "vertex.Client")

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("vertex client requires a project id")
	}
	if location = strings.TrimSpace(location); location == "" {
		location = "us-central1"
	}

	ts, err := tokenSourceFromEnv(context.Background())
	if err != nil {
		return nil, fmt.Errorf("vertex token source: %w", err)
	}

	timeoutSec := utils.GetEnvAsInt("VERTEX_HTTP_TIMEOUT_SECONDS", 120, slog)
	maxRetries := utils.GetEnvAsInt("VERTEX_MAX_RETRIES", 3, slog)

	return &Client{
		log:         slog,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		tokenSource: ts,
		projectID:   projectID,
		location:    location,
		maxRetries:  maxRetries,
		baseBackoff: 500 * time.Millisecond,
	}, nil
}

func tokenSourceFromEnv(ctx context.Context) (oauth2.TokenSource, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); raw != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(raw), cloudPlatformScope)
		if err != nil {
			return nil, err
		}
		return creds.TokenSource, nil
	}
	return google.DefaultTokenSource(ctx, cloudPlatformScope)
}

func (c *Client) modelURL(model, verb string) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.location, c.projectID, c.location, model, verb,
	)
}

// postJSON marshals reqBody, POSTs it with a fresh bearer token, and decodes
// the response into respBody. Retries on 429/5xx and transport errors.
func (c *Client) postJSON(ctx context.Context, url string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.jitterSleep(ctx, attempt)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		tok, err := c.tokenSource.Token()
		if err != nil {
			lastErr = fmt.Errorf("fetching access token: %w", err)
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !isRetryableErr(err) {
				return fmt.Errorf("vertex request failed: %w", err)
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusOK {
			if respBody == nil {
				return nil
			}
			if err := json.Unmarshal(body, respBody); err != nil {
				return fmt.Errorf("decoding vertex response: %w", err)
			}
			return nil
		}

		lastErr = fmt.Errorf("vertex status=%d body=%s", resp.StatusCode, truncate(string(body), 512))
		if !isRetryableHTTP(resp.StatusCode) {
			return lastErr
		}
		c.log.Warn("Retriable vertex error", "status", resp.StatusCode, "attempt", attempt)
	}
	return fmt.Errorf("vertex request exhausted retries: %w", lastErr)
}

func (c *Client) jitterSleep(ctx context.Context, attempt int) {
	backoff := c.baseBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > 10*time.Second {
		backoff = 10 * time.Second
	}
	backoff += time.Duration(rand.Int63n(int64(backoff) / 2))
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
}

func isRetryableHTTP(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "eof")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
