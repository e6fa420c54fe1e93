package config

import (
	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/utils"
)

// Config holds every runtime knob for both binaries. All values come from
// the environment with logged defaults.
type Config struct {
	Port    string
	LogMode string

	// Processing limits
	MaxConcurrentJobs           int
	JobDeadlineSeconds          int
	DocMaxBytes                 int64
	ImageMaxBytes               int64
	AudioMaxDurationSec         int
	VideoMaxDurationSec         int
	VideoSegmentLenSec          int
	VideoMaxSegments            int
	MultimodalContextTokenLimit int
	RetryAttempts               int

	// Object storage
	UploadBucketName string

	// Durable queue
	TaskQueueProject  string
	TaskQueueLocation string
	TaskQueueName     string
	ProcessorTaskURL  string

	// Vertex / Gemini
	GCPProjectID        string
	VertexLocation      string
	TextEmbeddingModel  string
	MultimodalModel     string
	GeminiModel         string
	TranscriptionEngine string

	// Document AI
	DocumentAIProject   string
	DocumentAILocation  string
	DocumentAIProcessor string

	// Postgres
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func Load(log *logger.Logger) *Config {
	return &Config{
		Port:    utils.GetEnv("PORT", "8080", log),
		LogMode: utils.GetEnv("LOG_MODE", "dev", log),

		MaxConcurrentJobs:           utils.GetEnvAsInt("MAX_CONCURRENT_JOBS", 1, log),
		JobDeadlineSeconds:          utils.GetEnvAsInt("JOB_DEADLINE_SECONDS", 3600, log),
		DocMaxBytes:                 utils.GetEnvAsInt64("DOC_MAX_BYTES", 104857600, log),
		ImageMaxBytes:               utils.GetEnvAsInt64("IMAGE_MAX_BYTES", 20971520, log),
		AudioMaxDurationSec:         utils.GetEnvAsInt("AUDIO_MAX_DURATION_SEC", 3600, log),
		VideoMaxDurationSec:         utils.GetEnvAsInt("VIDEO_MAX_DURATION_SEC", 900, log),
		VideoSegmentLenSec:          utils.GetEnvAsInt("VIDEO_SEGMENT_LEN_SEC", 30, log),
		VideoMaxSegments:            utils.GetEnvAsInt("VIDEO_MAX_SEGMENTS", 30, log),
		MultimodalContextTokenLimit: utils.GetEnvAsInt("MULTIMODAL_CONTEXT_TOKEN_LIMIT", 32, log),
		RetryAttempts:               utils.GetEnvAsInt("RETRY_ATTEMPTS", 3, log),

		UploadBucketName: utils.GetEnv("UPLOAD_GCS_BUCKET_NAME", "", log),

		TaskQueueProject:  utils.GetEnv("TASK_QUEUE_PROJECT", utils.GetEnv("GCP_PROJECT_ID", "", nil), log),
		TaskQueueLocation: utils.GetEnv("TASK_QUEUE_LOCATION", "us-central1", log),
		TaskQueueName:     utils.GetEnv("TASK_QUEUE_NAME", "document-processing", log),
		ProcessorTaskURL:  utils.GetEnv("PROCESSOR_TASK_URL", "", log),

		GCPProjectID:        utils.GetEnv("GCP_PROJECT_ID", "", log),
		VertexLocation:      utils.GetEnv("VERTEX_LOCATION", "us-central1", log),
		TextEmbeddingModel:  utils.GetEnv("VERTEX_TEXT_EMBEDDING_MODEL", "text-embedding-004", log),
		MultimodalModel:     utils.GetEnv("VERTEX_MULTIMODAL_MODEL", "multimodalembedding@001", log),
		GeminiModel:         utils.GetEnv("GEMINI_MODEL", "gemini-2.0-flash", log),
		TranscriptionEngine: utils.GetEnv("TRANSCRIPTION_ENGINE", "gemini", log),

		DocumentAIProject:   utils.GetEnv("DOCUMENTAI_PROJECT", utils.GetEnv("GCP_PROJECT_ID", "", nil), log),
		DocumentAILocation:  utils.GetEnv("DOCUMENTAI_LOCATION", "us", log),
		DocumentAIProcessor: utils.GetEnv("DOCUMENTAI_PROCESSOR_ID", "", log),

		PostgresHost:     utils.GetEnv("POSTGRES_HOST", "localhost", log),
		PostgresPort:     utils.GetEnv("POSTGRES_PORT", "5432", log),
		PostgresUser:     utils.GetEnv("POSTGRES_USER", "postgres", log),
		PostgresPassword: utils.GetEnv("POSTGRES_PASSWORD", "", log),
		PostgresDB:       utils.GetEnv("POSTGRES_DB", "mediarag", log),
		PostgresSSLMode:  utils.GetEnv("POSTGRES_SSLMODE", "disable", log),
	}
}
