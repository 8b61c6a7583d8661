package acceptance_tests

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"nutrilens/internal/analysis"
	"nutrilens/internal/app"
	"nutrilens/internal/database"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/llm"
	"nutrilens/internal/metrics"
	"nutrilens/internal/recommend"
	"nutrilens/internal/shared"
	"nutrilens/internal/storage"
	"nutrilens/internal/user"
)

// --- Mock vision model ---
type mockVision struct {
	mu    sync.Mutex
	calls int
}

func (m *mockVision) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (llm.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return llm.ContentResponse{
		Content: "Here is the estimate:\n" +
			`{"foods":[{"item":"Masala Dosa","quantity":"1 plate","calories":420,"protein":9,"fat":16,"carbs":58,"nutrients":["Iron"]}],"total_calories":420}`,
		Usage: shared.TokenUsage{PromptTokens: 1200, CompletionTokens: 80, Model: "mock-vision"},
	}, nil
}

func (m *mockVision) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type stack struct {
	app     *app.App
	metrics *metrics.Store
	handle  string
}

func newStack(t *testing.T, db *database.DB, vision llm.ImageAnalyzer) *stack {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	users := user.NewService(user.NewRepository(db.SQL), blobs)

	// The handle may already exist from an earlier stack over the same db.
	handle := "user1"
	if p, _ := users.Get(context.Background(), handle); p == nil {
		p, err := users.Register(context.Background(), user.RegistrationRequest{
			Name: "Meera", Email: "meera@example.com", Password: "pw", ConfirmPassword: "pw",
			Age: 28, Gender: "female", HeightCm: 160, WeightKg: 55,
			DietaryPreference: "veg", Goal: "weight_loss", ActivityLevel: "Lightly Active",
			Allergies: "peanuts",
		})
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		handle = p.Handle
	}

	m := metrics.NewStore(db.SQL)
	return &stack{
		app: app.NewApp(
			users,
			foodlog.NewLedger(foodlog.NewRepository(db.SQL)),
			analysis.NewAnalyzer(vision),
			recommend.NewComposer(nil),
			m,
		),
		metrics: m,
		handle:  handle,
	}
}

// TestMealTrackingWithAnalysisCache checks that re-uploading the same photo
// logs a second meal without a second model call, including after a restart.
func TestMealTrackingWithAnalysisCache(t *testing.T) {
	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "analysis_cache.json")
	photo := []byte("\xff\xd8\xff\xe0dosa-photo")

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	vision := &mockVision{}
	cached, err := llm.NewCachedImageAnalyzer(vision, cachePath)
	if err != nil {
		t.Fatal(err)
	}
	cached.WithValidator(analysis.Validate)
	s := newStack(t, db, cached)

	// --- First run ---
	first, err := s.app.UploadMeal(ctx, s.handle, "breakfast", photo, "image/jpeg", "")
	if err != nil {
		t.Fatalf("First upload failed: %v", err)
	}
	if first.Meal.TotalCalories != 420 || first.Today.Consumed != 420 {
		t.Errorf("Unexpected first upload: %+v", first)
	}
	if !first.Recommendation.Degraded || first.Suggestion.NextMeal == "" {
		t.Errorf("Expected a parsed fallback suggestion, got %+v", first.Suggestion)
	}

	second, err := s.app.UploadMeal(ctx, s.handle, "snack", photo, "image/jpeg", "again")
	if err != nil {
		t.Fatalf("Second upload failed: %v", err)
	}
	if vision.callCount() != 1 {
		t.Errorf("Expected 1 model call, got %d", vision.callCount())
	}
	if second.Today.Consumed != 840 || len(second.Today.Meals) != 2 {
		t.Errorf("Expected two meals totalling 840, got %+v", second.Today)
	}
	if err := cached.SaveCache(); err != nil {
		t.Fatal(err)
	}

	// --- Restart with the persisted cache ---
	restarted, err := llm.NewCachedImageAnalyzer(vision, cachePath)
	if err != nil {
		t.Fatal(err)
	}
	s = newStack(t, db, restarted.WithValidator(analysis.Validate))

	if _, err := s.app.UploadMeal(ctx, s.handle, "dinner", photo, "image/jpeg", ""); err != nil {
		t.Fatalf("Upload after restart failed: %v", err)
	}
	if vision.callCount() != 1 {
		t.Errorf("Expected cached analysis after restart, got %d model calls", vision.callCount())
	}

	today, err := s.app.Today(ctx, s.handle)
	if err != nil {
		t.Fatal(err)
	}
	if today.Consumed != 1260 || today.Meals[2].Category != foodlog.Dinner {
		t.Errorf("Unexpected day: %+v", today)
	}

	week, err := s.app.Week(ctx, s.handle, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(week.Points) != app.DefaultWindowDays || week.Points[len(week.Points)-1].Calories != 1260 {
		t.Errorf("Unexpected week: %+v", week.Points)
	}

	// Only the billed model call is recorded.
	agents, err := s.metrics.GetAgentUsage(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 1 || agents[0].AgentName != analysis.AgentName || agents[0].Executions != 1 {
		t.Errorf("Unexpected agent usage: %+v", agents)
	}
}
