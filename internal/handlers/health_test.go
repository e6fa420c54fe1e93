package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediarag-backend/internal/services"
)

func getHealth(t *testing.T, h *HealthHandler) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Handle)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding health payload: %v", err)
	}
	return payload
}

func TestHealthReportsServices(t *testing.T) {
	h := NewHealthHandler(services.NewJobTracker(), map[string]bool{
		"ai_text":       true,
		"ai_multimodal": true,
		"transcription": true,
		"chunk_store":   true,
	})

	payload := getHealth(t, h)
	if payload["status"] != "ok" {
		t.Fatalf("status: want=ok got=%v", payload["status"])
	}
	deps, ok := payload["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing services map in %v", payload)
	}
	for _, name := range []string{"ai_text", "ai_multimodal", "transcription", "chunk_store"} {
		if deps[name] != true {
			t.Fatalf("service %q: want=true got=%v", name, deps[name])
		}
	}
	if _, ok := payload["in_flight"]; !ok {
		t.Fatalf("missing in_flight in %v", payload)
	}
}

func TestHealthDegradedWhenServiceDown(t *testing.T) {
	h := NewHealthHandler(nil, map[string]bool{
		"ai_text":       true,
		"ai_multimodal": true,
		"transcription": false,
		"chunk_store":   true,
	})

	payload := getHealth(t, h)
	if payload["status"] != "degraded" {
		t.Fatalf("status: want=degraded got=%v", payload["status"])
	}
}

func TestHealthWithoutDependencies(t *testing.T) {
	payload := getHealth(t, NewHealthHandler(nil, nil))
	if payload["status"] != "ok" {
		t.Fatalf("status: want=ok got=%v", payload["status"])
	}
	if _, ok := payload["services"]; ok {
		t.Fatalf("services map should be omitted when none are wired")
	}
}
