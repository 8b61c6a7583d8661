package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nutrilens/internal/app"
	"nutrilens/internal/config"
	"nutrilens/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize database, storage and models
	services, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	if _, err := services.Users.Get(ctx, cfg.TelegramUserHandle); err != nil {
		log.Fatalf("Telegram user %s is not registered: %v", cfg.TelegramUserHandle, err)
	}

	sessions := telegram.NewSessionRepository(services.DB.SQL)
	if n, err := sessions.CleanupExpired(ctx, time.Now()); err != nil {
		log.Printf("Warning: failed to clean up sessions: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d expired sessions", n)
	}

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, services.App, services.Users, services.Metrics, sessions)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	if cfg.TelegramWebhookURL == "" {
		bot.Run(ctx)
		log.Println("Bot exiting")
		return
	}

	// 4. Start webhook server with graceful shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Telegram Bot Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case err := <-serverErr:
		log.Printf("Server failed: %v", err)
		return
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
