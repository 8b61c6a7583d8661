// Package analysis turns a meal photo into a nutrition estimate by asking a
// vision model and normalizing whatever text it returns.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"nutrilens/internal/foodlog"
)

// Result is the normalized estimate handed to the ledger.
type Result = foodlog.Estimate

// Failure reasons.
const (
	ReasonNoJSON      = "JSON not found"
	ReasonInvalidJSON = "invalid JSON"
	ReasonUpstream    = "analysis service error"
	ReasonEmptyImage  = "empty image"
)

// Failure is an analysis that produced no usable estimate. Raw carries the
// upstream text, if any, for diagnosis.
type Failure struct {
	Reason string
	Raw    string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type rawFood struct {
	Item      *string  `json:"item"`
	Quantity  *string  `json:"quantity"`
	Calories  number   `json:"calories"`
	Protein   number   `json:"protein"`
	Fat       number   `json:"fat"`
	Carbs     number   `json:"carbs"`
	Nutrients []string `json:"nutrients"`
}

type rawResult struct {
	Foods         []rawFood `json:"foods"`
	TotalCalories number    `json:"total_calories"`
}

// Validate reports whether raw model output parses into a Result. It is the
// check used to keep unusable answers out of the analysis cache.
func Validate(raw string) error {
	_, err := ParseResponse(raw)
	return err
}

// ParseResponse extracts the JSON object spanning the first '{' to the last
// '}' of raw and normalizes it. Missing names become "Unknown", missing
// quantities "N/A", missing or negative numbers 0. total_calories is taken as
// given and never recomputed from the items.
func ParseResponse(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Result{}, &Failure{Reason: ReasonNoJSON, Raw: raw}
	}

	var parsed rawResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return Result{}, &Failure{Reason: ReasonInvalidJSON, Raw: raw, Err: err}
	}

	foods := make([]foodlog.FoodItem, 0, len(parsed.Foods))
	for _, f := range parsed.Foods {
		item := foodlog.FoodItem{
			Item:      "Unknown",
			Quantity:  "N/A",
			Calories:  f.Calories.value(),
			Protein:   f.Protein.value(),
			Fat:       f.Fat.value(),
			Carbs:     f.Carbs.value(),
			Nutrients: f.Nutrients,
		}
		if f.Item != nil && strings.TrimSpace(*f.Item) != "" {
			item.Item = strings.TrimSpace(*f.Item)
		}
		if f.Quantity != nil && strings.TrimSpace(*f.Quantity) != "" {
			item.Quantity = strings.TrimSpace(*f.Quantity)
		}
		if item.Nutrients == nil {
			item.Nutrients = []string{}
		}
		foods = append(foods, item)
	}

	return Result{
		Foods:         foods,
		TotalCalories: int(parsed.TotalCalories.value()),
	}, nil
}

// number accepts a JSON number, a numeric string such as "120" or "120 kcal",
// or null. Anything else decodes to 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = leadingNumber(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

func (n number) value() float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}

func leadingNumber(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || (end == 0 && s[end] == '-')) {
		end++
	}
	return s[:end]
}
