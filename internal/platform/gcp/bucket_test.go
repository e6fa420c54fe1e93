package gcp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

func newEmulatorStore(t *testing.T, objects map[string]string) ObjectStore {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/b/test-bucket/o/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/storage/v1/b/test-bucket/o/"):]
		body, ok := objects[key]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"size":"%d","contentType":"text/plain","etag":"etag-1"}`, len(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	store, err := NewObjectStoreWithConfig(log, "test-bucket", ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewObjectStoreWithConfig: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDownloadToFileEmulator(t *testing.T) {
	store := newEmulatorStore(t, map[string]string{"uploads/a.txt": "alpha"})

	dest := filepath.Join(t.TempDir(), "a.txt")
	n, err := store.DownloadToFile(context.Background(), "uploads/a.txt", dest, 0)
	if err != nil {
		t.Fatalf("DownloadToFile: %v", err)
	}
	if n != int64(len("alpha")) {
		t.Fatalf("bytes: want=%d got=%d", len("alpha"), n)
	}
	body, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(body) != "alpha" {
		t.Fatalf("body: want=%q got=%q", "alpha", string(body))
	}
}

func TestDownloadToFileEnforcesMaxBytes(t *testing.T) {
	store := newEmulatorStore(t, map[string]string{"uploads/big.txt": "0123456789"})

	dest := filepath.Join(t.TempDir(), "big.txt")
	_, err := store.DownloadToFile(context.Background(), "uploads/big.txt", dest, 5)
	if err == nil {
		t.Fatalf("DownloadToFile: expected size limit error, got nil")
	}
}

func TestDownloadToFileExactLimitOK(t *testing.T) {
	store := newEmulatorStore(t, map[string]string{"uploads/fit.txt": "12345"})

	dest := filepath.Join(t.TempDir(), "fit.txt")
	n, err := store.DownloadToFile(context.Background(), "uploads/fit.txt", dest, 5)
	if err != nil {
		t.Fatalf("DownloadToFile: %v", err)
	}
	if n != 5 {
		t.Fatalf("bytes: want=5 got=%d", n)
	}
}

func TestDownloadToFileMissingObject(t *testing.T) {
	store := newEmulatorStore(t, map[string]string{})

	dest := filepath.Join(t.TempDir(), "missing.txt")
	if _, err := store.DownloadToFile(context.Background(), "uploads/missing.txt", dest, 0); err == nil {
		t.Fatalf("DownloadToFile: expected error for missing object, got nil")
	}
}

func TestGetObjectAttrsEmulator(t *testing.T) {
	store := newEmulatorStore(t, map[string]string{"uploads/a.txt": "alpha"})

	attrs, err := store.GetObjectAttrs(context.Background(), "uploads/a.txt")
	if err != nil {
		t.Fatalf("GetObjectAttrs: %v", err)
	}
	if attrs.Size != 5 {
		t.Fatalf("size: want=5 got=%d", attrs.Size)
	}
	if attrs.ContentType != "text/plain" {
		t.Fatalf("content type: want=%q got=%q", "text/plain", attrs.ContentType)
	}
}
