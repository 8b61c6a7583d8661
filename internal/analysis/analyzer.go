package analysis

import (
	"context"
	_ "embed"
	"log"
	"time"

	"nutrilens/internal/llm"
	"nutrilens/internal/shared"
)

//go:embed meal_prompt.md
var mealPrompt string

// AgentName identifies meal analysis in the metrics ledger.
const AgentName = "MealAnalyzer"

// Analyzer asks a vision model to describe a meal photo.
type Analyzer struct {
	vision llm.ImageAnalyzer
}

// NewAnalyzer creates an Analyzer backed by vision.
func NewAnalyzer(vision llm.ImageAnalyzer) *Analyzer {
	return &Analyzer{vision: vision}
}

// Analyze returns the normalized estimate for image. Every failure, including
// a failed model call, is reported as a *Failure.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (Result, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: AgentName}
	if len(image) == 0 {
		return Result{}, meta, &Failure{Reason: ReasonEmptyImage}
	}

	start := time.Now()
	resp, err := a.vision.AnalyzeImage(ctx, mealPrompt, image, mimeType)
	meta.Latency = time.Since(start)
	if err != nil {
		log.Printf("Meal analysis call failed: %v", err)
		return Result{}, meta, &Failure{Reason: ReasonUpstream, Err: err}
	}
	meta.Usage = resp.Usage

	result, err := ParseResponse(resp.Content)
	if err != nil {
		log.Printf("Meal analysis returned unusable output: %v", err)
		return Result{}, meta, err
	}
	return result, meta, nil
}
