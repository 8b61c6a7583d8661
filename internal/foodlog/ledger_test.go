package foodlog

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"nutrilens/internal/database"
)

func setupLedger(t *testing.T) (*Ledger, *Repository) {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db.SQL)
	clock := func() time.Time { return time.Date(2024, 6, 3, 8, 15, 0, 0, time.UTC) }
	return NewLedger(repo).WithClock(clock), repo
}

// memoryStore implements Store without Upserter so the find-then-write path runs.
type memoryStore struct {
	logs     map[string]*DailyLog
	findErr  error
	rangeErr error
	inserts  int
	pushes   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{logs: map[string]*DailyLog{}}
}

func (m *memoryStore) FindOne(_ context.Context, userID, date string) (*DailyLog, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	lg, ok := m.logs[userID+"|"+date]
	if !ok {
		return nil, nil
	}
	cp := *lg
	cp.Meals = append([]Meal(nil), lg.Meals...)
	return &cp, nil
}

func (m *memoryStore) InsertOne(_ context.Context, log DailyLog) (string, error) {
	m.inserts++
	m.logs[log.UserID+"|"+log.Date] = &log
	return "1", nil
}

func (m *memoryStore) PushMeal(_ context.Context, userID, date string, meal Meal) (int64, error) {
	lg, ok := m.logs[userID+"|"+date]
	if !ok {
		return 0, nil
	}
	m.pushes++
	lg.Meals = append(lg.Meals, meal)
	return 1, nil
}

func (m *memoryStore) FindRange(_ context.Context, userID, from, to string) ([]DailyLog, error) {
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	var out []DailyLog
	for _, lg := range m.logs {
		if lg.UserID == userID && lg.Date >= from && lg.Date <= to {
			out = append(out, *lg)
		}
	}
	return out, nil
}

func estimate(total int, items ...string) Estimate {
	foods := make([]FoodItem, 0, len(items))
	for _, it := range items {
		foods = append(foods, FoodItem{Item: it, Quantity: "1 serving", Nutrients: []string{}})
	}
	return Estimate{Foods: foods, TotalCalories: total}
}

func TestAppendMeal(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	t.Run("SameDayAppendsInOrder", func(t *testing.T) {
		ledger, _ := setupLedger(t)

		if _, err := ledger.AppendMeal(ctx, "user1", day, Breakfast, estimate(450, "oats"), ""); err != nil {
			t.Fatalf("Failed to append breakfast: %v", err)
		}
		if _, err := ledger.AppendMeal(ctx, "user1", day, Lunch, estimate(700, "rice", "chicken"), "after gym"); err != nil {
			t.Fatalf("Failed to append lunch: %v", err)
		}

		lg, err := ledger.GetLog(ctx, "user1", day)
		if err != nil {
			t.Fatalf("Failed to get log: %v", err)
		}
		if lg == nil {
			t.Fatal("Expected a log, got nil")
		}
		if len(lg.Meals) != 2 {
			t.Fatalf("Expected 2 meals, got %d", len(lg.Meals))
		}
		if lg.Meals[0].Category != Breakfast || lg.Meals[1].Category != Lunch {
			t.Errorf("Expected breakfast then lunch, got %s then %s", lg.Meals[0].Category, lg.Meals[1].Category)
		}
		if lg.Meals[1].Notes != "after gym" {
			t.Errorf("Expected notes to be kept, got %q", lg.Meals[1].Notes)
		}
		if lg.Meals[0].Time != "08:15" {
			t.Errorf("Expected meal time 08:15, got %s", lg.Meals[0].Time)
		}
		if lg.TotalCalories() != 1150 {
			t.Errorf("Expected 1150 kcal, got %d", lg.TotalCalories())
		}
	})

	t.Run("NewDateCreatesLog", func(t *testing.T) {
		ledger, repo := setupLedger(t)

		if _, err := ledger.AppendMeal(ctx, "user1", day, Breakfast, estimate(300, "toast"), ""); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		next := day.AddDate(0, 0, 1)
		if _, err := ledger.AppendMeal(ctx, "user1", next, Dinner, estimate(900, "pizza"), ""); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}

		lg, err := repo.FindOne(ctx, "user1", "2024-06-04")
		if err != nil {
			t.Fatalf("Failed to find log: %v", err)
		}
		if lg == nil || len(lg.Meals) != 1 {
			t.Fatalf("Expected new log with exactly one meal, got %+v", lg)
		}
		if lg.Meals[0].Foods[0].Item != "pizza" {
			t.Errorf("Expected pizza, got %s", lg.Meals[0].Foods[0].Item)
		}
	})

	t.Run("EmptyFoodsStoredAsEmptyList", func(t *testing.T) {
		ledger, _ := setupLedger(t)

		if _, err := ledger.AppendMeal(ctx, "user1", day, Snack, Estimate{TotalCalories: 0}, ""); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		lg, err := ledger.GetLog(ctx, "user1", day)
		if err != nil {
			t.Fatalf("Failed to get log: %v", err)
		}
		if lg.Meals[0].Foods == nil || len(lg.Meals[0].Foods) != 0 {
			t.Errorf("Expected empty food list, got %#v", lg.Meals[0].Foods)
		}
	})

	t.Run("FindThenWriteFallback", func(t *testing.T) {
		store := newMemoryStore()
		ledger := NewLedger(store)

		for _, c := range []MealCategory{Breakfast, Lunch, Dinner} {
			if _, err := ledger.AppendMeal(ctx, "user2", day, c, estimate(100, "x"), ""); err != nil {
				t.Fatalf("Failed to append %s: %v", c, err)
			}
		}
		if store.inserts != 1 || store.pushes != 2 {
			t.Errorf("Expected 1 insert and 2 pushes, got %d and %d", store.inserts, store.pushes)
		}
		lg, _ := ledger.GetLog(ctx, "user2", day)
		if got := lg.MealNames(); !reflect.DeepEqual(got, []string{"Breakfast", "Lunch", "Dinner"}) {
			t.Errorf("Unexpected meal order: %v", got)
		}
	})

	t.Run("StoreErrorPropagates", func(t *testing.T) {
		store := newMemoryStore()
		store.findErr = errors.New("connection reset")
		ledger := NewLedger(store)

		_, err := ledger.AppendMeal(ctx, "user1", day, Lunch, estimate(500, "soup"), "")
		if !errors.Is(err, ErrStore) {
			t.Fatalf("Expected ErrStore, got %v", err)
		}
		if store.inserts != 0 {
			t.Error("Expected no insert after a failed lookup")
		}

		if _, err := ledger.GetLog(ctx, "user1", day); !errors.Is(err, ErrStore) {
			t.Errorf("Expected GetLog to surface ErrStore, got %v", err)
		}
	})
}

func TestGetLog(t *testing.T) {
	ctx := context.Background()
	ledger, _ := setupLedger(t)
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	lg, err := ledger.GetLog(ctx, "nobody", day)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if lg != nil {
		t.Errorf("Expected nil log for a day without meals, got %+v", lg)
	}

	if _, err := ledger.AppendMeal(ctx, "user1", day, Breakfast, estimate(250, "eggs"), ""); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	first, err := ledger.GetLog(ctx, "user1", day)
	if err != nil {
		t.Fatalf("Failed to get log: %v", err)
	}
	second, err := ledger.GetLog(ctx, "user1", day)
	if err != nil {
		t.Fatalf("Failed to get log: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected repeated reads to match:\n%+v\n%+v", first, second)
	}
}

func TestGetWeeklySeries(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2024, 6, 7, 18, 30, 0, 0, time.UTC)

	t.Run("ZeroFillsMissingDays", func(t *testing.T) {
		ledger, _ := setupLedger(t)
		if _, err := ledger.AppendMeal(ctx, "user1", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Lunch, estimate(2500, "burger"), ""); err != nil {
			t.Fatal(err)
		}
		if _, err := ledger.AppendMeal(ctx, "user1", time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), Dinner, estimate(1200, "salad"), ""); err != nil {
			t.Fatal(err)
		}
		// Outside the window.
		if _, err := ledger.AppendMeal(ctx, "user1", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), Dinner, estimate(999, "cake"), ""); err != nil {
			t.Fatal(err)
		}

		points, err := ledger.GetWeeklySeries(ctx, "user1", end, 7, 2000)
		if err != nil {
			t.Fatalf("Failed to build series: %v", err)
		}
		if len(points) != 7 {
			t.Fatalf("Expected 7 points, got %d", len(points))
		}

		wantDates := []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05", "2024-06-06", "2024-06-07"}
		for i, p := range points {
			if p.Date != wantDates[i] {
				t.Errorf("Point %d: expected date %s, got %s", i, wantDates[i], p.Date)
			}
		}
		if points[1].Calories != 2500 || points[1].Status != StatusOver || points[1].Meals != 1 {
			t.Errorf("Unexpected point for 06-02: %+v", points[1])
		}
		if points[4].Calories != 1200 || points[4].Status != StatusUnder {
			t.Errorf("Unexpected point for 06-05: %+v", points[4])
		}
		if points[0].Calories != 0 || points[0].Meals != 0 || points[0].Status != StatusUnder {
			t.Errorf("Expected zero-filled point, got %+v", points[0])
		}

		stats := SummarizeWeek(points)
		if stats.ActiveDays != 2 || stats.DaysOverTarget != 1 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
		if stats.AverageCalories != 3700.0/7 {
			t.Errorf("Expected average %v, got %v", 3700.0/7, stats.AverageCalories)
		}
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		ledger, _ := setupLedger(t)
		points, err := ledger.GetWeeklySeries(ctx, "user1", end, 7, 2000)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if points == nil || len(points) != 0 {
			t.Errorf("Expected an empty series, got %#v", points)
		}
	})

	t.Run("TargetEqualIsUnder", func(t *testing.T) {
		ledger, _ := setupLedger(t)
		if _, err := ledger.AppendMeal(ctx, "user1", end, Dinner, estimate(2000, "steak"), ""); err != nil {
			t.Fatal(err)
		}
		points, err := ledger.GetWeeklySeries(ctx, "user1", end, 1, 2000)
		if err != nil {
			t.Fatal(err)
		}
		if len(points) != 1 || points[0].Status != StatusUnder {
			t.Errorf("Expected a single Under/At point, got %+v", points)
		}
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		ledger, _ := setupLedger(t)
		if _, err := ledger.GetWeeklySeries(ctx, "user1", end, 0, 2000); err == nil {
			t.Error("Expected error for a zero-day window")
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		store := newMemoryStore()
		store.rangeErr = errors.New("disk full")
		_, err := NewLedger(store).GetWeeklySeries(ctx, "user1", end, 7, 2000)
		if !errors.Is(err, ErrStore) {
			t.Errorf("Expected ErrStore, got %v", err)
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Run("NoLog", func(t *testing.T) {
		s := Summarize("2024-06-03", nil, 2000)
		if s.Consumed != 0 || s.Remaining != 2000 || s.OverBy != 0 {
			t.Errorf("Unexpected summary: %+v", s)
		}
	})

	t.Run("OverTarget", func(t *testing.T) {
		lg := &DailyLog{Meals: []Meal{{TotalCalories: 1500}, {TotalCalories: 800}}}
		s := Summarize("2024-06-03", lg, 2000)
		if s.Consumed != 2300 || s.Remaining != 0 || s.OverBy != 300 {
			t.Errorf("Unexpected summary: %+v", s)
		}
	})
}

func TestParseMealCategory(t *testing.T) {
	if c, err := ParseMealCategory(" Breakfast "); err != nil || c != Breakfast {
		t.Errorf("Expected breakfast, got %q (%v)", c, err)
	}
	if _, err := ParseMealCategory("brunch"); err == nil {
		t.Error("Expected error for unknown category")
	}
	if Snack.Title() != "Snack" {
		t.Errorf("Expected Snack, got %s", Snack.Title())
	}
}
