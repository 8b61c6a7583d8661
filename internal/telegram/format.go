package telegram

import (
	"fmt"
	"strings"

	"nutrilens/internal/app"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/metrics"
	"nutrilens/internal/nutrition"
	"nutrilens/internal/recommend"
	"nutrilens/internal/user"
)

func formatUpload(res app.UploadResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ *%s logged* (%s)\n\n", res.Meal.Category.Title(), res.Meal.Time))
	writeFoods(&sb, res.Meal.Foods)
	sb.WriteString(fmt.Sprintf("*Meal total:* %d kcal\n\n", res.Meal.TotalCalories))
	writeProgress(&sb, res.Today)
	if res.Recommendation.Text != "" {
		sb.WriteString("\n")
		sb.WriteString(formatRecommendation(res.Recommendation, res.Suggestion))
	}
	return sb.String()
}

func writeFoods(sb *strings.Builder, foods []foodlog.FoodItem) {
	for _, f := range foods {
		sb.WriteString(fmt.Sprintf("• %s", f.Item))
		if f.Quantity != "" && f.Quantity != "N/A" {
			sb.WriteString(fmt.Sprintf(" (%s)", f.Quantity))
		}
		sb.WriteString(fmt.Sprintf(": %.0f kcal\n", f.Calories))
	}
}

func writeProgress(sb *strings.Builder, s foodlog.DaySummary) {
	sb.WriteString(fmt.Sprintf("📊 *Today:* %d / %d kcal", s.Consumed, s.Target))
	if s.OverBy > 0 {
		sb.WriteString(fmt.Sprintf(" (⚠️ %d over)\n", s.OverBy))
	} else {
		sb.WriteString(fmt.Sprintf(" (%d left)\n", s.Remaining))
	}
}

func formatDay(s foodlog.DaySummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *%s*\n\n", s.Date))
	if len(s.Meals) == 0 {
		sb.WriteString("_No meals logged yet_\n\n")
	}
	for _, m := range s.Meals {
		sb.WriteString(fmt.Sprintf("*%s* %s: %d kcal\n", m.Category.Title(), m.Time, m.TotalCalories))
		if m.Notes != "" {
			sb.WriteString(fmt.Sprintf("_%s_\n", m.Notes))
		}
	}
	if len(s.Meals) > 0 {
		sb.WriteString("\n")
	}
	writeProgress(&sb, s)
	return sb.String()
}

func formatWeek(r app.WeekReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📈 *Calorie History* (target %d kcal)\n\n", r.Target))
	if len(r.Points) == 0 {
		sb.WriteString("_No meals logged in this period_\n")
		return sb.String()
	}

	for _, p := range r.Points {
		mark := "✅"
		if p.Status == foodlog.StatusOver {
			mark = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("%s %s: %d kcal\n", mark, p.Label(), p.Calories))
	}
	sb.WriteString(fmt.Sprintf("\n*Average:* %.0f kcal/day\n", r.Stats.AverageCalories))
	sb.WriteString(fmt.Sprintf("*Over target:* %d of %d days\n", r.Stats.DaysOverTarget, r.Stats.Days))
	return sb.String()
}

func formatRecommendation(rec recommend.Recommendation, s recommend.Suggestion) string {
	var sb strings.Builder
	if rec.Remaining >= 0 {
		sb.WriteString(fmt.Sprintf("🍽️ *Next meal* (%d kcal left)\n", rec.Remaining))
	} else {
		sb.WriteString(fmt.Sprintf("🍽️ *Next meal* (%d kcal over)\n", -rec.Remaining))
	}

	if s.Error != "" || s.NextMeal == "" {
		sb.WriteString(rec.Text)
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("*%s*", s.NextMeal))
	if s.Calories != "" {
		sb.WriteString(fmt.Sprintf(" (%s kcal)", s.Calories))
	}
	sb.WriteString("\n")
	for _, item := range s.FoodItems {
		sb.WriteString(fmt.Sprintf("• %s\n", item))
	}
	if len(s.Ingredients) > 0 {
		sb.WriteString(fmt.Sprintf("_Ingredients: %s_\n", strings.Join(s.Ingredients, ", ")))
	}
	return sb.String()
}

func formatProfile(p *user.Profile) string {
	bmi, label, severity := p.BMI()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 *%s* (%s)\n\n", p.Name, p.Handle))
	sb.WriteString(fmt.Sprintf("• Age: %d, %s\n", p.Age, p.Gender))
	sb.WriteString(fmt.Sprintf("• Height: %.0f cm, Weight: %.1f kg\n", p.HeightCm, p.WeightKg))
	sb.WriteString(fmt.Sprintf("• BMI: %.1f (%s)\n", bmi, label))
	sb.WriteString(fmt.Sprintf("• Activity: %s\n", p.ActivityLevel))
	if len(p.Allergies) > 0 {
		sb.WriteString(fmt.Sprintf("• Allergies: %s\n", strings.Join(p.Allergies, ", ")))
	}
	sb.WriteString(fmt.Sprintf("\n🎯 %s\n", nutrition.GoalSummary(string(p.Goal), p.DailyCalorieTarget)))
	sb.WriteString(fmt.Sprintf("_%s_\n", nutrition.BMISuggestion(severity)))
	return sb.String()
}

func formatMetrics(daily []metrics.DailyUsage, agents []metrics.AgentUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	if len(agents) > 0 {
		sb.WriteString("\n🤖 *Per Agent*\n")
		for _, a := range agents {
			sb.WriteString(fmt.Sprintf("• %s: %d calls, avg %.0fms\n", a.AgentName, a.Executions, a.AvgLatencyMS))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	for path, size := range health.DiskUsage {
		sb.WriteString(fmt.Sprintf("• Disk %s: %s\n", path, size))
	}
	return sb.String()
}
