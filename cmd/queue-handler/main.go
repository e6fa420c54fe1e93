package main

import (
	"log"
	"os"

	"github.com/yungbote/mediarag-backend/internal/config"
	"github.com/yungbote/mediarag-backend/internal/db"
	"github.com/yungbote/mediarag-backend/internal/handlers"
	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/repos"
	"github.com/yungbote/mediarag-backend/internal/server"
	"github.com/yungbote/mediarag-backend/internal/services"
)

func main() {
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = "dev"
	}
	lg, err := logger.New(mode)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	cfg := config.Load(lg)

	pg, err := db.NewPostgresService(cfg, lg)
	if err != nil {
		lg.Fatal("Failed to connect to postgres", "error", err)
	}
	defer pg.Close()

	documentRepo := repos.NewDocumentRepo(pg.GetDB(), lg)

	queue, err := gcp.NewTaskQueue(lg, gcp.TaskQueueConfig{
		Project:   cfg.TaskQueueProject,
		Location:  cfg.TaskQueueLocation,
		Queue:     cfg.TaskQueueName,
		TargetURL: cfg.ProcessorTaskURL,
	})
	if err != nil {
		lg.Fatal("Failed to init task queue", "error", err)
	}
	defer queue.Close()

	dispatcher := services.NewDispatcher(lg, queue, documentRepo, cfg.UploadBucketName)

	router := server.NewQueueHandlerRouter(server.QueueHandlerRouterConfig{
		Events: handlers.NewEventsHandler(lg, dispatcher),
		Health: handlers.NewHealthHandler(nil, nil),
	})

	lg.Info("Queue handler listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		lg.Fatal("Server exited", "error", err)
	}
}
