package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey      string
	GeminiVisionModel string
	GeminiTextModel   string
	GroqAPIKey        string
	AnalysisCachePath string

	DatabasePath string
	JWTSecret    string
	Port         string

	// Blob storage for profile images
	BlobBackend string
	BlobDir     string
	S3Bucket    string
	S3Region    string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	TelegramUserHandle     string
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
// Secrets only some commands need are checked by the Require methods.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}

	blobBackend := strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendFS))
	s3Bucket := os.Getenv("S3_BUCKET")
	switch blobBackend {
	case BlobBackendFS:
	case BlobBackendS3:
		if s3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported BLOB_BACKEND %q", blobBackend)
	}

	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = os.Getenv("AWS_REGION") // fallback
	}

	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		adminID, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiVisionModel:      getEnv("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
		GeminiTextModel:        getEnv("GEMINI_TEXT_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		AnalysisCachePath:      os.Getenv("ANALYSIS_CACHE_PATH"),
		DatabasePath:           getEnv("DATABASE_PATH", "data/nutrilens.db"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		Port:                   getEnv("PORT", "8080"),
		BlobBackend:            blobBackend,
		BlobDir:                getEnv("BLOB_DIR", "data/blobs"),
		S3Bucket:               s3Bucket,
		S3Region:               s3Region,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		TelegramUserHandle:     os.Getenv("TELEGRAM_USER_HANDLE"),
		AdminTelegramID:        adminID,
	}, nil
}

// RequireModels reports an error when the model API key is missing.
func (c *Config) RequireModels() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// RequireJWT reports an error when the token signing secret is missing.
func (c *Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// RequireTelegram reports an error when the bot-only settings are missing.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramUserHandle == "" {
		return fmt.Errorf("TELEGRAM_USER_HANDLE environment variable not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
