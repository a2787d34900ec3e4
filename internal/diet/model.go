package diet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActivityLevel is how physically active the user is.
type ActivityLevel string

const (
	Sedentary        ActivityLevel = "sedentary"
	LightlyActive    ActivityLevel = "lightly_active"
	ModeratelyActive ActivityLevel = "moderately_active"
	VeryActive       ActivityLevel = "very_active"
	ExtraActive      ActivityLevel = "extra_active"
)

// ActivityLevels lists the accepted activity levels in display order.
var ActivityLevels = []ActivityLevel{Sedentary, LightlyActive, ModeratelyActive, VeryActive, ExtraActive}

// Valid reports whether a is one of ActivityLevels.
func (a ActivityLevel) Valid() bool {
	for _, v := range ActivityLevels {
		if a == v {
			return true
		}
	}
	return false
}

// DietaryGoal is what the user wants the diet to achieve.
type DietaryGoal string

const (
	LoseWeight     DietaryGoal = "lose_weight"
	GainMuscle     DietaryGoal = "gain_muscle"
	MaintainWeight DietaryGoal = "maintain_weight"
	HealthyEating  DietaryGoal = "healthy_eating"
)

// DietaryGoals lists the accepted goals in display order.
var DietaryGoals = []DietaryGoal{LoseWeight, GainMuscle, MaintainWeight, HealthyEating}

// Valid reports whether g is one of DietaryGoals.
func (g DietaryGoal) Valid() bool {
	for _, v := range DietaryGoals {
		if g == v {
			return true
		}
	}
	return false
}

// DietaryPreference restricts which foods a recommendation may contain.
type DietaryPreference string

const (
	AnyDiet    DietaryPreference = "any"
	Vegetarian DietaryPreference = "veg"
	NonVeg     DietaryPreference = "non-veg"
	Vegan      DietaryPreference = "vegan"
)

// DietaryPreferences lists the accepted preferences in display order.
var DietaryPreferences = []DietaryPreference{AnyDiet, Vegetarian, NonVeg, Vegan}

// Valid reports whether p is one of DietaryPreferences.
func (p DietaryPreference) Valid() bool {
	for _, v := range DietaryPreferences {
		if p == v {
			return true
		}
	}
	return false
}

// UserProfile holds the nutrition-relevant attributes of a user.
// Age and Weight are nil until the user fills them in.
type UserProfile struct {
	Age               *int              `json:"age"`
	Weight            *float64          `json:"weight"`
	ActivityLevel     ActivityLevel     `json:"activityLevel"`
	DietaryGoals      DietaryGoal       `json:"dietaryGoals"`
	DietaryPreference DietaryPreference `json:"dietaryPreference"`
}

// DefaultProfile returns the profile a user starts with on first visit.
func DefaultProfile() UserProfile {
	return UserProfile{
		ActivityLevel:     ActivityLevels[0],
		DietaryGoals:      DietaryGoals[0],
		DietaryPreference: DietaryPreferences[0],
	}
}

// UnmarshalJSON implements the json.Unmarshaler interface for UserProfile.
// Enum values are normalised to lower case; empty enums fall back to the defaults.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type Alias UserProfile // Create an alias to avoid infinite recursion
	aux := &struct {
		ActivityLevel     string `json:"activityLevel"`
		DietaryGoals      string `json:"dietaryGoals"`
		DietaryPreference string `json:"dietaryPreference"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	def := DefaultProfile()
	p.ActivityLevel = ActivityLevel(orDefault(aux.ActivityLevel, string(def.ActivityLevel)))
	p.DietaryGoals = DietaryGoal(orDefault(aux.DietaryGoals, string(def.DietaryGoals)))
	p.DietaryPreference = DietaryPreference(orDefault(aux.DietaryPreference, string(def.DietaryPreference)))

	return nil
}

func orDefault(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

// Describe flattens the profile into the one-line form used in analysis prompts.
func (p UserProfile) Describe() string {
	age, weight := "unknown", "unknown"
	if p.Age != nil {
		age = fmt.Sprintf("%d", *p.Age)
	}
	if p.Weight != nil {
		weight = fmt.Sprintf("%gkg", *p.Weight)
	}
	return fmt.Sprintf("Age: %s, Weight: %s, Activity Level: %s, Dietary Goals: %s, Dietary Preference: %s",
		age, weight, p.ActivityLevel, p.DietaryGoals, p.DietaryPreference)
}

// Meal is one dish of a recommendation.
type Meal struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PhotoDataURI string `json:"photoDataUri"`
}

// DietRecommendation is the result of the recommendation flow.
type DietRecommendation struct {
	Recommendation string `json:"recommendation"`
	Meals          []Meal `json:"meals"`
}

// AnalysisResult is the result of the meal analysis flow.
type AnalysisResult struct {
	AlignmentAssessment string `json:"alignmentAssessment"`
	Suggestions         string `json:"suggestions"`
}

// MealLogEntry is the free-form description of what a user ate on one day.
type MealLogEntry struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// AuthenticatedUser is the read-only projection of an identity provider account.
type AuthenticatedUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
}
