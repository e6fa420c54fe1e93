package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

// ObjectStore reads uploaded media from the configured bucket. Supports the
// real GCS API and a fake-gcs emulator for local development.
type ObjectStore interface {
	// DownloadToFile streams an object into destPath. maxBytes > 0 aborts
	// the download as soon as the stream exceeds the cap.
	DownloadToFile(ctx context.Context, key, destPath string, maxBytes int64) (int64, error)
	GetObjectAttrs(ctx context.Context, key string) (*ObjectAttrs, error)
	BucketName() string
	Close() error
}

type objectStore struct {
	log          *logger.Logger
	client       *storage.Client
	bucket       string
	mode         ObjectStorageMode
	emulatorHost string
}

func NewObjectStore(log *logger.Logger, bucket string) (ObjectStore, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewObjectStoreWithConfig(log, bucket, storageCfg)
}

func NewObjectStoreWithConfig(log *logger.Logger, bucket string, storageCfg ObjectStorageConfig) (ObjectStore, error) {
	if err := storageCfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("missing upload bucket name")
	}
	serviceLog := log.With("service", "ObjectStore")

	client, err := newStorageClientForMode(context.Background(), storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", bucket,
	)

	return &objectStore{
		log:          serviceLog,
		client:       client,
		bucket:       bucket,
		mode:         storageCfg.Mode,
		emulatorHost: strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("invalid object storage mode %q", storageCfg.Mode)
	}
}

func (s *objectStore) BucketName() string { return s.bucket }

func (s *objectStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *objectStore) isEmulatorMode() bool {
	return s != nil && s.mode == ObjectStorageModeGCSEmulator && s.emulatorHost != ""
}

func (s *objectStore) emulatorObjectMediaURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
		s.emulatorHost, url.PathEscape(s.bucket), url.PathEscape(key))
}

func (s *objectStore) emulatorObjectMetaURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s",
		s.emulatorHost, url.PathEscape(s.bucket), url.PathEscape(key))
}

func (s *objectStore) DownloadToFile(ctx context.Context, key, destPath string, maxBytes int64) (int64, error) {
	reader, err := s.openReader(ctx, key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating download target: %w", err)
	}
	defer out.Close()

	src := io.Reader(reader)
	if maxBytes > 0 {
		// One extra byte so an over-limit object is distinguishable from an
		// exact-limit one.
		src = io.LimitReader(reader, maxBytes+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, fmt.Errorf("downloading object %q: %w", key, err)
	}
	if maxBytes > 0 && n > maxBytes {
		return n, fmt.Errorf("object %q exceeds size limit of %d bytes", key, maxBytes)
	}
	return n, nil
}

func (s *objectStore) openReader(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.isEmulatorMode() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.emulatorObjectMediaURL(key), nil)
		if err != nil {
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return resp.Body, nil
	}
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS reader for %q: %w", key, err)
	}
	return r, nil
}

func (s *objectStore) GetObjectAttrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.isEmulatorMode() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.emulatorObjectMetaURL(key), nil)
		if err != nil {
			return nil, fmt.Errorf("failed creating emulator attrs request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed emulator attrs request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("emulator attrs failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		var payload struct {
			Size        string `json:"size"`
			ContentType string `json:"contentType"`
			Updated     string `json:"updated"`
			ETag        string `json:"etag"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode emulator attrs: %w", err)
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(payload.Size), 10, 64)
		var updated time.Time
		if ts := strings.TrimSpace(payload.Updated); ts != "" {
			if parsed, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
				updated = parsed
			}
		}
		return &ObjectAttrs{Size: size, ContentType: payload.ContentType, Updated: updated, ETag: payload.ETag}, nil
	}

	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GCS object attrs: %w", err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}
