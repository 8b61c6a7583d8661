package recommend

import (
	"fmt"
	"strings"

	"nutrilens/internal/user"
)

type fallbackMeal struct {
	name        string
	calories    int
	items       []string
	ingredients []string
	veg         bool
}

// Ordered by calories; the largest meal that fits the budget wins.
var fallbackMeals = []fallbackMeal{
	{"Snack - Greek Yogurt with Berries", 180, []string{"Greek yogurt", "Mixed berries", "Honey drizzle"}, []string{"yogurt", "berries", "honey"}, true},
	{"Snack - Boiled Eggs and Cucumber", 200, []string{"Two boiled eggs", "Cucumber slices", "Black pepper"}, []string{"eggs", "cucumber", "pepper"}, false},
	{"Snack - Roasted Chickpeas", 220, []string{"Roasted chickpeas", "Carrot sticks", "Hummus"}, []string{"chickpeas", "carrots", "olive oil"}, true},
	{"Dinner - Vegetable Khichdi", 450, []string{"Rice and lentil khichdi", "Cucumber raita", "Green salad"}, []string{"rice", "moong dal", "mixed vegetables", "yogurt"}, true},
	{"Dinner - Grilled Chicken Salad", 480, []string{"Grilled chicken breast", "Leafy greens", "Whole wheat roll"}, []string{"chicken", "lettuce", "tomato", "olive oil"}, false},
	{"Lunch - Paneer Wrap", 600, []string{"Whole wheat wrap", "Grilled paneer", "Mint chutney"}, []string{"wheat flour", "paneer", "onion", "mint"}, true},
	{"Lunch - Salmon Rice Bowl", 650, []string{"Baked salmon", "Brown rice", "Steamed broccoli"}, []string{"salmon", "brown rice", "broccoli", "soy sauce"}, false},
}

// Fallback composes a suggestion without a text generator. It honours the
// same line format as generated text, the user's dietary preference and
// allergies.
func Fallback(p *user.Profile, remaining int) string {
	veg := p.DietaryPreference == user.DietVeg
	var pick *fallbackMeal
	for i := range fallbackMeals {
		m := &fallbackMeals[i]
		if veg && !m.veg {
			continue
		}
		if conflictsWithAllergies(m, p.Allergies) {
			continue
		}
		if pick == nil || m.calories <= remaining {
			pick = m
		}
	}

	var b strings.Builder
	if pick == nil {
		b.WriteString("Next Meal: Snack - Fresh Fruit\n")
		b.WriteString("Calories: 100\n")
		b.WriteString("Food Items:\n- Seasonal fruit\n")
		b.WriteString("Ingredients:\n- fruit\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Next Meal: %s\n", pick.name)
	fmt.Fprintf(&b, "Calories: %d\n", pick.calories)
	b.WriteString("Food Items:\n")
	for _, it := range pick.items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	b.WriteString("Ingredients:\n")
	for _, ing := range pick.ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}
	return b.String()
}

func conflictsWithAllergies(m *fallbackMeal, allergies []string) bool {
	for _, a := range allergies {
		for _, ing := range m.ingredients {
			if strings.Contains(ing, a) || strings.Contains(a, ing) {
				return true
			}
		}
	}
	return false
}
