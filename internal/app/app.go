// Package app wires the meal-tracking use cases together: analyze a photo,
// log the meal, summarize the day or week and suggest the next meal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nutrilens/internal/analysis"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/recommend"
	"nutrilens/internal/shared"
	"nutrilens/internal/user"
)

// ErrInvalidInput marks a malformed request, e.g. an unknown meal category.
var ErrInvalidInput = errors.New("invalid input")

// DefaultWindowDays is the length of the weekly view.
const DefaultWindowDays = 7

const maxWindowDays = 90

// MealAnalyzer estimates the nutrition of a meal photo.
type MealAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (analysis.Result, shared.AgentMeta, error)
}

// Recommender composes the next-meal suggestion.
type Recommender interface {
	Compose(ctx context.Context, p *user.Profile, today *foodlog.DailyLog) recommend.Recommendation
}

// Profiles loads user profiles.
type Profiles interface {
	Get(ctx context.Context, handle string) (*user.Profile, error)
}

// MetricsRecorder stores model usage.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// App holds the application's dependencies.
type App struct {
	users       Profiles
	ledger      *foodlog.Ledger
	analyzer    MealAnalyzer
	recommender Recommender
	metrics     MetricsRecorder
	now         func() time.Time
}

// NewApp creates and initializes a new App instance. metrics may be nil.
func NewApp(
	users Profiles,
	ledger *foodlog.Ledger,
	analyzer MealAnalyzer,
	recommender Recommender,
	metrics MetricsRecorder,
) *App {
	return &App{
		users:       users,
		ledger:      ledger,
		analyzer:    analyzer,
		recommender: recommender,
		metrics:     metrics,
		now:         time.Now,
	}
}

// UploadResult is everything the client shows after a successful upload.
type UploadResult struct {
	Meal           foodlog.Meal             `json:"meal"`
	Today          foodlog.DaySummary       `json:"today"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	Suggestion     recommend.Suggestion     `json:"suggestion"`
}

// UploadMeal analyzes the photo and appends the meal to today's log, then
// summarizes the day and suggests the next meal. A failed analysis returns
// its *analysis.Failure and saves nothing. The recommendation step cannot
// undo or fail a saved meal.
func (a *App) UploadMeal(ctx context.Context, handle, category string, image []byte, mimeType, notes string) (UploadResult, error) {
	cat, err := foodlog.ParseMealCategory(category)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	profile, err := a.users.Get(ctx, handle)
	if err != nil {
		return UploadResult{}, err
	}

	result, meta, err := a.analyzer.Analyze(ctx, image, mimeType)
	a.record(ctx, meta)
	if err != nil {
		return UploadResult{}, err
	}

	today := a.now()
	meal, err := a.ledger.AppendMeal(ctx, handle, today, cat, result, notes)
	if err != nil {
		return UploadResult{}, err
	}
	log.Printf("Logged %s for %s: %d kcal", cat, handle, meal.TotalCalories)

	dayLog, err := a.ledger.GetLog(ctx, handle, today)
	if err != nil {
		return UploadResult{Meal: meal}, fmt.Errorf("meal saved but today's log could not be read: %w", err)
	}

	rec := a.recommender.Compose(ctx, profile, dayLog)
	a.record(ctx, rec.Meta)

	return UploadResult{
		Meal:           meal,
		Today:          foodlog.Summarize(today.Format(foodlog.DateLayout), dayLog, profile.DailyCalorieTarget),
		Recommendation: rec,
		Suggestion:     recommend.Parse(rec.Text),
	}, nil
}

// Today summarizes the current day against the user's target.
func (a *App) Today(ctx context.Context, handle string) (foodlog.DaySummary, error) {
	return a.Day(ctx, handle, a.now().Format(foodlog.DateLayout))
}

// Day summarizes one ISO date.
func (a *App) Day(ctx context.Context, handle, date string) (foodlog.DaySummary, error) {
	day, err := time.ParseInLocation(foodlog.DateLayout, date, a.now().Location())
	if err != nil {
		return foodlog.DaySummary{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	profile, err := a.users.Get(ctx, handle)
	if err != nil {
		return foodlog.DaySummary{}, err
	}
	dayLog, err := a.ledger.GetLog(ctx, handle, day)
	if err != nil {
		return foodlog.DaySummary{}, err
	}
	return foodlog.Summarize(date, dayLog, profile.DailyCalorieTarget), nil
}

// WeekReport is the trailing-window view.
type WeekReport struct {
	Target int                   `json:"target"`
	Points []foodlog.WeeklyPoint `json:"points"`
	Stats  foodlog.WeeklyStats   `json:"stats"`
}

// Week builds the trailing series ending today. days <= 0 selects
// DefaultWindowDays.
func (a *App) Week(ctx context.Context, handle string, days int) (WeekReport, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if days > maxWindowDays {
		return WeekReport{}, fmt.Errorf("%w: window is limited to %d days", ErrInvalidInput, maxWindowDays)
	}

	profile, err := a.users.Get(ctx, handle)
	if err != nil {
		return WeekReport{}, err
	}
	points, err := a.ledger.GetWeeklySeries(ctx, handle, a.now(), days, profile.DailyCalorieTarget)
	if err != nil {
		return WeekReport{}, err
	}
	return WeekReport{
		Target: profile.DailyCalorieTarget,
		Points: points,
		Stats:  foodlog.SummarizeWeek(points),
	}, nil
}

// Recommend suggests the next meal from today's log.
func (a *App) Recommend(ctx context.Context, handle string) (recommend.Recommendation, recommend.Suggestion, error) {
	profile, err := a.users.Get(ctx, handle)
	if err != nil {
		return recommend.Recommendation{}, recommend.Suggestion{}, err
	}
	dayLog, err := a.ledger.GetLog(ctx, handle, a.now())
	if err != nil {
		return recommend.Recommendation{}, recommend.Suggestion{}, err
	}

	rec := a.recommender.Compose(ctx, profile, dayLog)
	a.record(ctx, rec.Meta)
	return rec, recommend.Parse(rec.Text), nil
}

func (a *App) record(ctx context.Context, meta shared.AgentMeta) {
	if a.metrics == nil || meta.AgentName == "" {
		return
	}
	if err := a.metrics.RecordMeta(ctx, meta); err != nil {
		log.Printf("Warning: failed to record metrics for %s: %v", meta.AgentName, err)
	}
}
