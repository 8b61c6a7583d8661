package recommend

import (
	"strings"
)

// Suggestion is a recommendation text split into its labelled parts.
type Suggestion struct {
	NextMeal    string   `json:"next_meal"`
	Calories    string   `json:"calories"`
	FoodItems   []string `json:"food_items"`
	Ingredients []string `json:"ingredients"`
	Error       string   `json:"error,omitempty"`
}

// Parse reads the line format produced by Compose. Unknown lines are
// ignored; bullets ("-", "*" or "•") belong to the most recent list header.
func Parse(text string) Suggestion {
	var s Suggestion
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "Error:") {
		s.Error = strings.TrimSpace(strings.TrimPrefix(trimmed, "Error:"))
		return s
	}

	var list *[]string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if n := bulletLen(line); n > 0 {
			if list != nil {
				*list = append(*list, strings.TrimSpace(line[n:]))
			}
			continue
		}

		// Models sometimes bold the labels.
		line = strings.TrimSpace(strings.Trim(line, "*"))
		switch {
		case hasLabel(line, "Next Meal:"):
			s.NextMeal = value(line, "Next Meal:")
			list = nil
		case hasLabel(line, "Calories:"):
			s.Calories = value(line, "Calories:")
			list = nil
		case hasLabel(line, "Food Items:"):
			list = &s.FoodItems
		case hasLabel(line, "Ingredients:"):
			list = &s.Ingredients
		}
	}
	return s
}

func hasLabel(line, label string) bool {
	return len(line) >= len(label) && strings.EqualFold(line[:len(label)], label)
}

func value(line, label string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line[len(label):]), "*"))
}

func bulletLen(line string) int {
	for _, b := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, b) {
			return len(b)
		}
	}
	return 0
}
