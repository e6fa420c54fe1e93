package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/mediarag-backend/internal/config"
	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/types"
)

type PostgresService interface {
	GetDB() *gorm.DB
	AutoMigrateAll() error
	Close() error
}

type postgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(cfg *config.Config, log *logger.Logger) (PostgresService, error) {
	log = log.With("service", "PostgresService")
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser,
		cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
	)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return nil, fmt.Errorf("creating uuid-ossp extension: %w", err)
	}
	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return nil, fmt.Errorf("creating pgvector extension: %w", err)
	}
	log.Info("Connected to postgres", "host", cfg.PostgresHost, "db", cfg.PostgresDB)
	return &postgresService{db: gdb, log: log}, nil
}

func (s *postgresService) GetDB() *gorm.DB { return s.db }

func (s *postgresService) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(
		&types.Document{},
		&types.Chunk{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// ivfflat indexes cannot be expressed through struct tags.
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_chunk_text_embedding
		   ON chunk USING ivfflat (text_embedding vector_cosine_ops) WITH (lists = 100)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_multimodal_embedding
		   ON chunk USING ivfflat (multimodal_embedding vector_cosine_ops) WITH (lists = 100)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("creating vector index: %w", err)
		}
	}
	s.log.Info("Migrations complete")
	return nil
}

func (s *postgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
