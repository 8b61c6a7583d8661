// Package foodlog owns the per-day meal ledger: appending analysed meals,
// reading a day back and building the trailing weekly series.
package foodlog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStore marks a failure of the underlying store. It is never reported as
// an absent log.
var ErrStore = errors.New("food log store failure")

// Store is the document-store contract the Ledger depends on.
type Store interface {
	// FindOne returns the log for (userID, date), or nil when absent.
	FindOne(ctx context.Context, userID, date string) (*DailyLog, error)
	// InsertOne creates a new log and returns its id.
	InsertOne(ctx context.Context, log DailyLog) (string, error)
	// PushMeal appends a meal to an existing log and returns the modified count.
	PushMeal(ctx context.Context, userID, date string, meal Meal) (int64, error)
	// FindRange returns the logs with from <= date <= to in ascending date order.
	FindRange(ctx context.Context, userID, from, to string) ([]DailyLog, error)
}

// Upserter is implemented by stores that can create-or-append atomically.
type Upserter interface {
	UpsertMeal(ctx context.Context, userID, date string, meal Meal) error
}

// Ledger appends meals to daily logs and aggregates them.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock replaces the clock used to stamp meal times.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// AppendMeal records a meal for (userID, day), creating the day's log on the
// first upload. When the store cannot upsert atomically the find-then-write
// sequence can race with a concurrent append for the same day from another
// session; that is accepted under the one-session-per-user model.
func (l *Ledger) AppendMeal(ctx context.Context, userID string, day time.Time, category MealCategory, est Estimate, notes string) (Meal, error) {
	foods := est.Foods
	if foods == nil {
		foods = []FoodItem{}
	}
	meal := Meal{
		Category:      category,
		Time:          l.now().Format("15:04"),
		Foods:         foods,
		TotalCalories: est.TotalCalories,
		Notes:         notes,
	}
	date := day.Format(DateLayout)

	if u, ok := l.store.(Upserter); ok {
		if err := u.UpsertMeal(ctx, userID, date, meal); err != nil {
			return Meal{}, fmt.Errorf("%w: failed to upsert meal: %w", ErrStore, err)
		}
		return meal, nil
	}

	existing, err := l.store.FindOne(ctx, userID, date)
	if err != nil {
		return Meal{}, fmt.Errorf("%w: failed to find daily log: %w", ErrStore, err)
	}

	if existing != nil {
		n, err := l.store.PushMeal(ctx, userID, date, meal)
		if err != nil {
			return Meal{}, fmt.Errorf("%w: failed to append meal: %w", ErrStore, err)
		}
		if n == 0 {
			return Meal{}, fmt.Errorf("%w: daily log %s/%s disappeared before append", ErrStore, userID, date)
		}
		return meal, nil
	}

	if _, err := l.store.InsertOne(ctx, DailyLog{UserID: userID, Date: date, Meals: []Meal{meal}}); err != nil {
		return Meal{}, fmt.Errorf("%w: failed to create daily log: %w", ErrStore, err)
	}
	return meal, nil
}

// GetLog returns the log for (userID, day), or nil when nothing was logged.
func (l *Ledger) GetLog(ctx context.Context, userID string, day time.Time) (*DailyLog, error) {
	log, err := l.store.FindOne(ctx, userID, day.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read daily log: %w", ErrStore, err)
	}
	return log, nil
}

// GetWeeklySeries returns one point per calendar day in the windowDays ending
// on endDay, ascending, with missing days zero-filled. Status is computed
// against the caller's current target. A window with no logs at all yields an
// empty series.
func (l *Ledger) GetWeeklySeries(ctx context.Context, userID string, endDay time.Time, windowDays, target int) ([]WeeklyPoint, error) {
	if windowDays < 1 {
		return nil, fmt.Errorf("window must cover at least one day, got %d", windowDays)
	}

	end := dateOnly(endDay)
	start := end.AddDate(0, 0, -(windowDays - 1))

	logs, err := l.store.FindRange(ctx, userID, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read weekly logs: %w", ErrStore, err)
	}
	if len(logs) == 0 {
		return []WeeklyPoint{}, nil
	}

	byDate := make(map[string]DailyLog, len(logs))
	for _, lg := range logs {
		byDate[lg.Date] = lg
	}

	points := make([]WeeklyPoint, 0, windowDays)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		lg := byDate[key] // zero value if not found
		calories := lg.TotalCalories()
		points = append(points, WeeklyPoint{
			Date:     key,
			Calories: calories,
			Meals:    len(lg.Meals),
			Status:   StatusFor(calories, target),
		})
	}
	return points, nil
}
