package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrilens/internal/app"
	"nutrilens/internal/auth"
	"nutrilens/internal/config"
	"nutrilens/internal/database"
	"nutrilens/internal/httpapi"
	"nutrilens/internal/metrics"
	"nutrilens/internal/nutrition"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serve()
	case "target":
		target(os.Args[2:])
	case "migrate":
		cfg := loadConfig()
		if err := database.RunMigrations(cfg.DatabasePath); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		cfg := loadConfig()
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		affected, err := metrics.NewStore(db.SQL).Cleanup(context.Background(), *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func serve() {
	cfg := loadConfig()
	if err := cfg.RequireJWT(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	ctx := context.Background()

	services, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	started := time.Now()
	handler := httpapi.NewHandler(
		services.Users,
		services.App,
		auth.NewTokenIssuer(cfg.JWTSecret, auth.DefaultTokenTTL),
		func() metrics.SysHealth { return metrics.GetSysHealth(started, cfg.DatabasePath, cfg.BlobDir) },
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // meal analysis waits on the vision model
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// No log.Fatal past this point: the deferred Close saves the analysis cache.
	if err := runServer(srv, quit, 30*time.Second); err != nil {
		log.Printf("Server error: %v", err)
		return
	}
	log.Println("Server exited")
}

// runServer serves until a signal arrives on quit, then shuts down within
// grace. A listen failure is returned instead of exiting the process.
func runServer(srv *http.Server, quit <-chan os.Signal, grace time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	return nil
}

// target prints BMI and the daily calorie target without touching the
// database or any model.
func target(args []string) {
	fs := flag.NewFlagSet("target", flag.ExitOnError)
	age := fs.Int("age", 30, "Age in years")
	gender := fs.String("gender", "female", "male, female or other")
	height := fs.Float64("height", 165, "Height in cm")
	weight := fs.Float64("weight", 60, "Weight in kg")
	activity := fs.String("activity", "Sedentary", "Sedentary, Lightly Active, Moderately Active or Very Active")
	goal := fs.String("goal", "maintenance", "weight_loss, maintenance or weight_gain")
	fs.Parse(args)

	bmi := nutrition.CalculateBMI(*height, *weight)
	label, severity := nutrition.ClassifyBMI(bmi)
	kcal := nutrition.CalculateDailyTarget(*age, *gender, *height, *weight, *activity, *goal)

	fmt.Printf("BMI: %.1f (%s)\n", bmi, label)
	fmt.Printf("%s\n", nutrition.BMISuggestion(severity))
	fmt.Printf("BMR: %.1f kcal\n", nutrition.BMR(*age, *gender, *height, *weight))
	fmt.Println(nutrition.GoalSummary(*goal, kcal))
}

func printUsage() {
	fmt.Println("Usage: nutrilens <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Start the HTTP API")
	fmt.Println("  target             Print BMI and daily calorie target for the given biometrics")
	fmt.Println("  migrate            Apply database migrations")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
