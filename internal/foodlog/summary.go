package foodlog

// DaySummary is what the "today" view shows for one date.
type DaySummary struct {
	Date      string `json:"date"`
	Target    int    `json:"target"`
	Consumed  int    `json:"consumed"`
	Remaining int    `json:"remaining"`
	OverBy    int    `json:"over_by"`
	Meals     []Meal `json:"meals"`
}

// Summarize reports consumption against target for a single day. A nil log
// means nothing was eaten.
func Summarize(date string, log *DailyLog, target int) DaySummary {
	consumed := log.TotalCalories()
	s := DaySummary{
		Date:     date,
		Target:   target,
		Consumed: consumed,
		Meals:    []Meal{},
	}
	if log != nil {
		s.Meals = log.Meals
	}
	if consumed > target {
		s.OverBy = consumed - target
	} else {
		s.Remaining = target - consumed
	}
	return s
}

// WeeklyStats aggregates a weekly series.
type WeeklyStats struct {
	Days            int     `json:"days"`
	AverageCalories float64 `json:"average_calories"`
	DaysOverTarget  int     `json:"days_over_target"`
	ActiveDays      int     `json:"active_days"`
}

// SummarizeWeek averages calories over every day in the window, including
// zero-filled ones.
func SummarizeWeek(points []WeeklyPoint) WeeklyStats {
	stats := WeeklyStats{Days: len(points)}
	if len(points) == 0 {
		return stats
	}
	total := 0
	for _, p := range points {
		total += p.Calories
		if p.Status == StatusOver {
			stats.DaysOverTarget++
		}
		if p.Meals > 0 {
			stats.ActiveDays++
		}
	}
	stats.AverageCalories = float64(total) / float64(len(points))
	return stats
}
