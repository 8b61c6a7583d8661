package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nutrilens/internal/database"
	"nutrilens/internal/shared"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	now := time.Now().UTC()

	records := []ExecutionMetric{
		{AgentName: "MealAnalyzer", Model: "gemini", PromptTokens: 100, CompletionTokens: 40, LatencyMS: 900, Timestamp: now},
		{AgentName: "MealAnalyzer", Model: "gemini", PromptTokens: 120, CompletionTokens: 50, LatencyMS: 1100, Timestamp: now},
		{AgentName: "Recommender", Model: "gemini", PromptTokens: 80, CompletionTokens: 30, LatencyMS: 400, Timestamp: now.AddDate(0, 0, -1)},
		{AgentName: "Recommender", Model: "gemini", PromptTokens: 10, CompletionTokens: 10, LatencyMS: 100, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, r := range records {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
	}

	t.Run("DailyUsage", func(t *testing.T) {
		usage, err := store.GetDailyUsage(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to get usage: %v", err)
		}
		if len(usage) != 2 {
			t.Fatalf("Expected 2 days, got %d: %+v", len(usage), usage)
		}
		today := usage[0]
		if today.Date != now.Format("2006-01-02") || today.TotalPrompt != 220 || today.TotalCompletion != 90 || today.TotalExecution != 2 {
			t.Errorf("Unexpected usage for today: %+v", today)
		}
	})

	t.Run("AgentUsage", func(t *testing.T) {
		usage, err := store.GetAgentUsage(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to get agent usage: %v", err)
		}
		if len(usage) != 2 || usage[0].AgentName != "MealAnalyzer" || usage[0].Executions != 2 || usage[0].AvgLatencyMS != 1000 {
			t.Errorf("Unexpected agent usage: %+v", usage)
		}
	})

	t.Run("RecordMetaSkipsZeroUsage", func(t *testing.T) {
		if err := store.RecordMeta(ctx, shared.AgentMeta{AgentName: "MealAnalyzer", Usage: shared.TokenUsage{Model: "cache"}}); err != nil {
			t.Fatal(err)
		}
		if err := store.RecordMeta(ctx, shared.AgentMeta{
			AgentName: "Recommender",
			Usage:     shared.TokenUsage{PromptTokens: 5, CompletionTokens: 5, Model: "groq"},
			Latency:   250 * time.Millisecond,
		}); err != nil {
			t.Fatal(err)
		}
		usage, _ := store.GetDailyUsage(ctx, 1)
		if len(usage) == 0 || usage[0].TotalExecution != 3 {
			t.Errorf("Expected exactly one extra execution today, got %+v", usage)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := store.Cleanup(ctx, 30)
		if err != nil {
			t.Fatalf("Failed to clean up: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 row removed, got %d", n)
		}
	})
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blob"), make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	h := GetSysHealth(time.Now().Add(-time.Minute), dir, "")
	if h.Status != "ok" || h.Goroutines == 0 {
		t.Errorf("Unexpected health: %+v", h)
	}
	if h.DiskUsage[dir] != "2.0 KB" {
		t.Errorf("Expected 2.0 KB, got %q", h.DiskUsage[dir])
	}
	if len(h.DiskUsage) != 1 {
		t.Errorf("Expected empty paths to be skipped, got %v", h.DiskUsage)
	}
}
