package server

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediarag-backend/internal/handlers"
)

// ProcessorRouterConfig wires the processor service: the queue push target
// plus the retrieval endpoint.
type ProcessorRouterConfig struct {
	ProcessTask *handlers.ProcessTaskHandler
	Search      *handlers.SearchHandler
	Health      *handlers.HealthHandler
}

func NewProcessorRouter(cfg ProcessorRouterConfig) *gin.Engine {
	r := gin.Default()

	r.GET("/health", cfg.Health.Handle)
	r.POST("/process-task", cfg.ProcessTask.Handle)
	r.POST("/search", cfg.Search.Handle)

	return r
}

// QueueHandlerRouterConfig wires the event-facing service that turns
// storage notifications into queue tasks.
type QueueHandlerRouterConfig struct {
	Events *handlers.EventsHandler
	Health *handlers.HealthHandler
}

func NewQueueHandlerRouter(cfg QueueHandlerRouterConfig) *gin.Engine {
	r := gin.Default()

	r.GET("/health", cfg.Health.Handle)
	r.POST("/events/object-finalized", cfg.Events.Handle)

	return r
}
