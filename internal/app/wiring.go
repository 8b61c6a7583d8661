package app

import (
	"context"
	"fmt"
	"log"

	"nutrilens/internal/analysis"
	"nutrilens/internal/config"
	"nutrilens/internal/database"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/llm"
	"nutrilens/internal/metrics"
	"nutrilens/internal/recommend"
	"nutrilens/internal/storage"
	"nutrilens/internal/user"
)

// Services is the production object graph shared by the binaries.
type Services struct {
	DB      *database.DB
	Users   *user.Service
	Metrics *metrics.Store
	App     *App

	gemini *llm.GeminiClient
	cache  *llm.CachedImageAnalyzer
}

// Build opens the database and blob store and connects the model clients.
// Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	if err := cfg.RequireModels(); err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s := &Services{DB: db, gemini: gemini}

	var vision llm.ImageAnalyzer = gemini
	if cfg.AnalysisCachePath != "" {
		cache, err := llm.NewCachedImageAnalyzer(gemini, cfg.AnalysisCachePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load analysis cache: %w", err)
		}
		s.cache = cache.WithValidator(analysis.Validate)
		vision = s.cache
	}

	var textGen llm.TextGenerator = gemini
	if cfg.GroqAPIKey != "" {
		log.Printf("Using Groq for meal recommendations")
		textGen = llm.NewGroqClient(cfg)
	}

	s.Users = user.NewService(user.NewRepository(db.SQL), blobs)
	s.Metrics = metrics.NewStore(db.SQL)
	s.App = NewApp(
		s.Users,
		foodlog.NewLedger(foodlog.NewRepository(db.SQL)),
		analysis.NewAnalyzer(vision),
		recommend.NewComposer(textGen),
		s.Metrics,
	)
	return s, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 blob store: %w", err)
		}
		log.Printf("Profile images stored in s3://%s", cfg.S3Bucket)
		return store, nil
	default:
		store, err := storage.NewFileStore(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob store: %w", err)
		}
		return store, nil
	}
}

// Close flushes the analysis cache and releases the clients and database.
func (s *Services) Close() {
	if s.cache != nil {
		if err := s.cache.SaveCache(); err != nil {
			log.Printf("Failed to save analysis cache: %v", err)
		}
	}
	if s.gemini != nil {
		if err := s.gemini.Close(); err != nil {
			log.Printf("Failed to close Gemini client: %v", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
