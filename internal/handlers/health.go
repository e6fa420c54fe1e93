package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediarag-backend/internal/services"
)

type HealthHandler struct {
	tracker  *services.JobTracker
	services map[string]bool
}

// NewHealthHandler reports liveness plus per-dependency readiness. The
// services map records which downstream clients initialized; nil when the
// binary has no downstream clients to report.
func NewHealthHandler(tracker *services.JobTracker, deps map[string]bool) *HealthHandler {
	return &HealthHandler{tracker: tracker, services: deps}
}

// GET /health
func (h *HealthHandler) Handle(c *gin.Context) {
	status := "ok"
	for _, up := range h.services {
		if !up {
			status = "degraded"
			break
		}
	}
	payload := gin.H{"status": status}
	if h.services != nil {
		payload["services"] = h.services
	}
	if h.tracker != nil {
		payload["in_flight"] = h.tracker.InFlight()
		payload["jobs"] = h.tracker.Snapshot()
	}
	c.JSON(http.StatusOK, payload)
}
