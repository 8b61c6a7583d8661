// Package user manages accounts: registration, login, profile edits and the
// profile image.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrilens/internal/nutrition"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrNotFound         = errors.New("user not found")
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type DietaryPreference string

const (
	DietVeg    DietaryPreference = "veg"
	DietNonVeg DietaryPreference = "non-veg"
)

type Goal string

const (
	GoalWeightLoss  Goal = "weight_loss"
	GoalMaintenance Goal = "maintenance"
	GoalWeightGain  Goal = "weight_gain"
)

// ParseGender accepts any casing of male, female or other.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrValidation, s)
}

// ParseDietaryPreference accepts "Veg", "Non-Veg" and "non_veg" style values.
func ParseDietaryPreference(s string) (DietaryPreference, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch DietaryPreference(norm) {
	case DietVeg:
		return DietVeg, nil
	case DietNonVeg, "nonveg":
		return DietNonVeg, nil
	}
	return "", fmt.Errorf("%w: unknown dietary preference %q", ErrValidation, s)
}

// ParseGoal accepts "weight_loss", "Weight Loss" or "weight-loss" style values.
func ParseGoal(s string) (Goal, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch g := Goal(norm); g {
	case GoalWeightLoss, GoalMaintenance, GoalWeightGain:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown goal %q", ErrValidation, s)
}

// Profile is a registered user.
type Profile struct {
	Handle             string            `json:"user_id"`
	Number             int               `json:"-"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	PasswordHash       string            `json:"-"`
	Age                int               `json:"age"`
	Gender             Gender            `json:"gender"`
	HeightCm           float64           `json:"height_cm"`
	WeightKg           float64           `json:"weight_kg"`
	DietaryPreference  DietaryPreference `json:"dietary_preference"`
	Goal               Goal              `json:"goal"`
	ActivityLevel      string            `json:"activity_level"`
	DailyCalorieTarget int               `json:"daily_calorie_target"`
	Allergies          []string          `json:"allergies"`
	ProfileImageID     string            `json:"profile_image_id,omitempty"`
	RegisteredAt       time.Time         `json:"registered_at"`
}

// RecomputeTarget refreshes the cached daily calorie target from the
// biometrics. It must run after every change to them.
func (p *Profile) RecomputeTarget() {
	p.DailyCalorieTarget = nutrition.CalculateDailyTarget(
		p.Age, string(p.Gender), p.HeightCm, p.WeightKg, p.ActivityLevel, string(p.Goal))
}

// BMI returns the body mass index with its band.
func (p *Profile) BMI() (float64, string, nutrition.Severity) {
	bmi := nutrition.CalculateBMI(p.HeightCm, p.WeightKg)
	label, severity := nutrition.ClassifyBMI(bmi)
	return bmi, label, severity
}

// ParseAllergies splits a comma separated list, trimming and lower-casing
// each entry and dropping empty ones.
func ParseAllergies(s string) []string {
	out := []string{}
	for _, a := range strings.Split(s, ",") {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// RegistrationRequest is the sign-up form.
type RegistrationRequest struct {
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	ConfirmPassword   string  `json:"confirm_password"`
	Age               int     `json:"age"`
	Gender            string  `json:"gender"`
	HeightCm          float64 `json:"height_cm"`
	WeightKg          float64 `json:"weight_kg"`
	DietaryPreference string  `json:"dietary_preference"`
	Goal              string  `json:"goal"`
	ActivityLevel     string  `json:"activity_level"`
	Allergies         string  `json:"allergies"`
	ProfileImage      []byte  `json:"-"`
}

// ProfileUpdate carries the editable fields. Nil fields are left unchanged.
// Gender cannot be changed after registration.
type ProfileUpdate struct {
	Name              *string  `json:"name"`
	Age               *int     `json:"age"`
	HeightCm          *float64 `json:"height_cm"`
	WeightKg          *float64 `json:"weight_kg"`
	DietaryPreference *string  `json:"dietary_preference"`
	Goal              *string  `json:"goal"`
	ActivityLevel     *string  `json:"activity_level"`
	Allergies         *string  `json:"allergies"`
}
