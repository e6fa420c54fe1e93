package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/yungbote/mediarag-backend/internal/config"
	"github.com/yungbote/mediarag-backend/internal/db"
	"github.com/yungbote/mediarag-backend/internal/handlers"
	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/platform/gcp"
	"github.com/yungbote/mediarag-backend/internal/platform/localmedia"
	"github.com/yungbote/mediarag-backend/internal/platform/vertex"
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
	if err := pg.AutoMigrateAll(); err != nil {
		lg.Fatal("Failed to run migrations", "error", err)
	}
	gormDB := pg.GetDB()

	documentRepo := repos.NewDocumentRepo(gormDB, lg)
	chunkRepo := repos.NewChunkRepo(gormDB, lg)

	store, err := gcp.NewObjectStore(lg, cfg.UploadBucketName)
	if err != nil {
		lg.Fatal("Failed to init object store", "error", err)
	}
	defer store.Close()

	docAI, err := gcp.NewDocAI(lg, cfg.DocumentAIProject, cfg.DocumentAILocation, cfg.DocumentAIProcessor)
	if err != nil {
		lg.Fatal("Failed to init Document AI", "error", err)
	}
	defer docAI.Close()

	// OCR is an enrichment, not a requirement. Run without it if Vision
	// is unavailable in this environment.
	ocr, err := gcp.NewOCR(lg)
	if err != nil {
		lg.Warn("Vision OCR unavailable, image chunks will skip OCR metadata", "error", err)
		ocr = nil
	} else {
		defer ocr.Close()
	}

	vertexClient, err := vertex.NewClient(lg, cfg.GCPProjectID, cfg.VertexLocation)
	if err != nil {
		lg.Fatal("Failed to init Vertex client", "error", err)
	}
	gemini := vertex.NewGemini(vertexClient, cfg.GeminiModel)
	embedder := services.NewEmbeddingProvider(lg,
		vertex.NewEmbedder(vertexClient, cfg.TextEmbeddingModel, cfg.MultimodalModel),
		cfg.MultimodalContextTokenLimit)

	tools := localmedia.New(lg)
	if err := tools.AssertReady(context.Background()); err != nil {
		lg.Fatal("Media tools unavailable", "error", err)
	}

	transcriber, err := services.NewTranscriptionProvider(lg, cfg.TranscriptionEngine, gemini, tools)
	if err != nil {
		lg.Fatal("Failed to init transcription provider", "error", err)
	}
	describer := services.NewDescriptionProvider(lg, gemini)

	pipelines := map[services.MediaClass]services.Pipeline{
		services.MediaClassDocument: services.NewDocumentPipeline(lg, docAI, embedder),
		services.MediaClassImage:    services.NewImagePipeline(lg, describer, embedder, ocr),
		services.MediaClassAudio:    services.NewAudioPipeline(lg, tools, transcriber, embedder, cfg.AudioMaxDurationSec),
		services.MediaClassVideo: services.NewVideoPipeline(lg, tools, transcriber, describer, embedder,
			cfg.VideoSegmentLenSec, cfg.VideoMaxSegments, cfg.VideoMaxDurationSec),
	}

	tracker := services.NewJobTracker()
	chunkStore := services.NewChunkStore(lg, gormDB, chunkRepo, documentRepo)
	processor := services.NewProcessor(lg, store, tools, documentRepo, chunkStore, tracker, pipelines,
		services.ProcessorLimits{
			DocMaxBytes:   cfg.DocMaxBytes,
			ImageMaxBytes: cfg.ImageMaxBytes,
		})
	search := services.NewSearchService(lg, embedder, chunkRepo)

	router := server.NewProcessorRouter(server.ProcessorRouterConfig{
		ProcessTask: handlers.NewProcessTaskHandler(lg, processor, cfg.MaxConcurrentJobs,
			time.Duration(cfg.JobDeadlineSeconds)*time.Second),
		Search: handlers.NewSearchHandler(lg, search),
		Health: handlers.NewHealthHandler(tracker, map[string]bool{
			"ai_text":       embedder != nil,
			"ai_multimodal": embedder != nil,
			"transcription": transcriber != nil,
			"chunk_store":   chunkStore != nil,
		}),
	})

	lg.Info("Processor listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		lg.Fatal("Server exited", "error", err)
	}
}
