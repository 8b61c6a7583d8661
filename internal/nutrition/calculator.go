// Package nutrition holds the calorie-target model: BMI, basal metabolic rate
// and the daily calorie target derived from a user's biometrics.
package nutrition

import (
	"fmt"
	"strings"
)

// Severity is the display tone attached to a BMI band.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultActivityMultiplier applies to activity labels not in the table.
const DefaultActivityMultiplier = 1.4

// goalAdjustment is the daily surplus/deficit for weight gain/loss.
const goalAdjustment = 500

var activityMultipliers = map[string]float64{
	"sedentary":         1.2,
	"lightly active":    1.375,
	"moderately active": 1.55,
	"very active":       1.725,
}

// ActivityLevels lists the selectable activity labels with their descriptions.
var ActivityLevels = []string{
	"Sedentary : Little or no exercise, mostly sitting.",
	"Lightly Active : Light exercise or walking 1-3 days/week.",
	"Moderately Active : Moderate exercise 3-5 days/week.",
	"Very Active : Heavy exercise or sports 6-7 days/week.",
}

// CalculateBMI returns weight / height(m)^2, or 0 when the height is not positive.
func CalculateBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	h := heightCm / 100.0
	return weightKg / (h * h)
}

// ClassifyBMI maps a BMI onto four half-open bands, inclusive on the lower bound.
func ClassifyBMI(bmi float64) (string, Severity) {
	switch {
	case bmi < 18.5:
		return "Underweight", SeverityInfo
	case bmi < 25:
		return "Normal Weight", SeveritySuccess
	case bmi < 30:
		return "Overweight", SeverityWarning
	default:
		return "Above Healthy Range", SeverityError
	}
}

// BMISuggestion is the short advice shown next to a BMI band.
func BMISuggestion(s Severity) string {
	switch s {
	case SeverityInfo:
		return "Consider increasing calorie intake with nutrient-dense foods"
	case SeveritySuccess:
		return "Maintain healthy habits with balanced nutrition"
	case SeverityWarning:
		return "Small lifestyle changes can help reach a healthier weight"
	default:
		return "Your weight may increase health risks. Tracking meals and calories helps you reach your goals safely"
	}
}

// BMR is the Mifflin-St Jeor basal metabolic rate. The formula is binary:
// "male" selects the +5 constant, every other value the -161 constant.
func BMR(age int, gender string, heightCm, weightKg float64) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if strings.EqualFold(strings.TrimSpace(gender), "male") {
		return base + 5
	}
	return base - 161
}

// ActivityMultiplier looks up the multiplier for an activity label. Only the
// text before the first colon is significant.
func ActivityMultiplier(label string) float64 {
	name, _, _ := strings.Cut(label, ":")
	if m, ok := activityMultipliers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	return DefaultActivityMultiplier
}

// CalculateDailyTarget returns the daily calorie target, truncated toward zero.
// Inputs are assumed to be validated by the caller.
func CalculateDailyTarget(age int, gender string, heightCm, weightKg float64, activityLevel, goal string) int {
	tdee := BMR(age, gender, heightCm, weightKg) * ActivityMultiplier(activityLevel)

	switch goal {
	case "weight_loss":
		tdee -= goalAdjustment
	case "weight_gain":
		tdee += goalAdjustment
	}
	return int(tdee)
}

// GoalSummary explains what the target means for the chosen goal.
func GoalSummary(goal string, target int) string {
	switch goal {
	case "weight_loss":
		return fmt.Sprintf("Weight Loss: daily target %d kcal creates a calorie deficit", target)
	case "weight_gain":
		return fmt.Sprintf("Weight Gain: daily target %d kcal, focus on nutrient-rich foods", target)
	default:
		return fmt.Sprintf("Maintain Weight: daily target %d kcal with a balanced diet", target)
	}
}
