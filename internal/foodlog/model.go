package foodlog

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used as the per-day key.
const DateLayout = "2006-01-02"

// MealCategory is the slot a meal was eaten in.
type MealCategory string

const (
	Breakfast MealCategory = "breakfast"
	Lunch     MealCategory = "lunch"
	Dinner    MealCategory = "dinner"
	Snack     MealCategory = "snack"
)

// MealCategories lists the categories in the order they are eaten during a day.
var MealCategories = []MealCategory{Breakfast, Lunch, Dinner, Snack}

// ParseMealCategory accepts a category name in any case.
func ParseMealCategory(s string) (MealCategory, error) {
	c := MealCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MealCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown meal category %q", s)
}

// Title returns the capitalised category name for display.
func (c MealCategory) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// FoodItem is one detected food inside a meal.
type FoodItem struct {
	Item      string   `json:"item"`
	Quantity  string   `json:"quantity"`
	Calories  float64  `json:"calories"`
	Protein   float64  `json:"protein"`
	Fat       float64  `json:"fat"`
	Carbs     float64  `json:"carbs"`
	Nutrients []string `json:"nutrients"`
}

// Estimate is the normalized nutrition estimate for one meal photo.
// TotalCalories is authoritative and is not recomputed from Foods.
type Estimate struct {
	Foods         []FoodItem `json:"foods"`
	TotalCalories int        `json:"total_calories"`
}

// Meal is one upload event. Immutable once appended to a DailyLog.
type Meal struct {
	Category      MealCategory `json:"meal_name"`
	Time          string       `json:"time"`
	Foods         []FoodItem   `json:"foods"`
	TotalCalories int          `json:"total_calories"`
	Notes         string       `json:"notes,omitempty"`
}

// DailyLog holds every meal a user logged on one calendar date, in upload order.
type DailyLog struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Meals  []Meal `json:"meals"`
}

// TotalCalories sums the meals' totals. A nil log counts as zero.
func (l *DailyLog) TotalCalories() int {
	if l == nil {
		return 0
	}
	total := 0
	for _, m := range l.Meals {
		total += m.TotalCalories
	}
	return total
}

// MealNames lists the category of every meal logged so far.
func (l *DailyLog) MealNames() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Meals))
	for _, m := range l.Meals {
		names = append(names, m.Category.Title())
	}
	return names
}

// Status classifies a day's intake against the daily target.
type Status string

const (
	StatusOver  Status = "Over Target"
	StatusUnder Status = "Under/At Target"
)

// StatusFor is Over only when calories strictly exceed the target.
func StatusFor(calories, target int) Status {
	if calories > target {
		return StatusOver
	}
	return StatusUnder
}

// WeeklyPoint is one day of the trailing window. It is derived on every read
// and never persisted.
type WeeklyPoint struct {
	Date     string `json:"date"`
	Calories int    `json:"calories"`
	Meals    int    `json:"meals"`
	Status   Status `json:"status"`
}

// Label formats the date as "Mon, Jan 02".
func (p WeeklyPoint) Label() string {
	d, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return p.Date
	}
	return d.Format("Mon, Jan 02")
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
