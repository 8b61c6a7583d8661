// Package recommend suggests the user's next meal from what is left of the
// day's calorie budget.
package recommend

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"

	"nutrilens/internal/foodlog"
	"nutrilens/internal/llm"
	"nutrilens/internal/shared"
	"nutrilens/internal/user"
)

//go:embed recommend_prompt.md
var recommendPrompt string

// AgentName identifies recommendations in the metrics ledger.
const AgentName = "Recommender"

var promptTmpl = template.Must(template.New("recommend").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(recommendPrompt))

type promptData struct {
	Name              string
	Goal              string
	DietaryPreference string
	Allergies         []string
	Target            int
	Remaining         int
	MealsSoFar        []string
}

// Recommendation is the composed suggestion. Text follows the line format
// understood by Parse. Degraded is set when the text is an error message or
// the local fallback.
type Recommendation struct {
	Text      string           `json:"text"`
	Remaining int              `json:"remaining_calories"`
	Degraded  bool             `json:"degraded"`
	Meta      shared.AgentMeta `json:"-"`
}

// Remaining is the calorie target minus everything eaten today. It may be
// negative once the target is exceeded.
func Remaining(target int, log *foodlog.DailyLog) int {
	return target - log.TotalCalories()
}

// Composer builds next-meal suggestions. A nil text generator selects the
// local fallback.
type Composer struct {
	textGen llm.TextGenerator
}

// NewComposer creates a Composer.
func NewComposer(textGen llm.TextGenerator) *Composer {
	return &Composer{textGen: textGen}
}

// Compose never fails: a text generation error is returned as an
// "Error: ..." text.
func (c *Composer) Compose(ctx context.Context, p *user.Profile, today *foodlog.DailyLog) Recommendation {
	remaining := Remaining(p.DailyCalorieTarget, today)
	meta := shared.AgentMeta{AgentName: AgentName}

	if c.textGen == nil {
		return Recommendation{Text: Fallback(p, remaining), Remaining: remaining, Degraded: true, Meta: meta}
	}

	prompt, err := buildPrompt(promptData{
		Name:              p.Name,
		Goal:              string(p.Goal),
		DietaryPreference: string(p.DietaryPreference),
		Allergies:         p.Allergies,
		Target:            p.DailyCalorieTarget,
		Remaining:         remaining,
		MealsSoFar:        today.MealNames(),
	})
	if err != nil {
		log.Printf("Failed to build recommendation prompt: %v", err)
		return Recommendation{Text: "Error: " + err.Error(), Remaining: remaining, Degraded: true, Meta: meta}
	}

	start := time.Now()
	resp, err := c.textGen.GenerateContent(ctx, prompt)
	meta.Latency = time.Since(start)
	if err != nil {
		log.Printf("Recommendation generation failed for %s: %v", p.Handle, err)
		return Recommendation{Text: fmt.Sprintf("Error: %v", err), Remaining: remaining, Degraded: true, Meta: meta}
	}
	meta.Usage = resp.Usage

	return Recommendation{Text: strings.TrimSpace(resp.Content), Remaining: remaining, Meta: meta}
}

func buildPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
