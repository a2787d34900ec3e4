package diet

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Profile bounds accepted by the recommendation flow.
const (
	MinAge    = 1
	MaxAge    = 120
	MinWeight = 1.0
	MaxWeight = 500.0
)

// MinMealLogLength is the minimum number of characters of a non-empty meal log.
const MinMealLogLength = 10

// DateLayout is the calendar date format used to key meal logs.
const DateLayout = "2006-01-02"

// earliestLogDate is the first day a meal log may be written for.
var earliestLogDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// maxUTCOffset is the furthest any time zone runs ahead of UTC (UTC+14).
const maxUTCOffset = 14 * time.Hour

// ValidateForRecommendation checks that p is complete and within bounds.
func ValidateForRecommendation(p UserProfile) error {
	if p.Age == nil {
		return &ValidationError{Field: "age", Message: "age is required"}
	}
	if *p.Age < MinAge || *p.Age > MaxAge {
		return &ValidationError{Field: "age", Message: "age must be between 1 and 120"}
	}
	if p.Weight == nil {
		return &ValidationError{Field: "weight", Message: "weight is required"}
	}
	if *p.Weight < MinWeight || *p.Weight > MaxWeight {
		return &ValidationError{Field: "weight", Message: "weight must be between 1 and 500 kg"}
	}
	return ValidateChoices(p)
}

// ValidateChoices checks the enumerated fields of p.
func ValidateChoices(p UserProfile) error {
	if !p.ActivityLevel.Valid() {
		return &ValidationError{Field: "activityLevel", Message: "unknown activity level " + string(p.ActivityLevel)}
	}
	if !p.DietaryGoals.Valid() {
		return &ValidationError{Field: "dietaryGoals", Message: "unknown dietary goal " + string(p.DietaryGoals)}
	}
	if !p.DietaryPreference.Valid() {
		return &ValidationError{Field: "dietaryPreference", Message: "unknown dietary preference " + string(p.DietaryPreference)}
	}
	return nil
}

// ValidateProfileUpdate checks a profile submitted for storage. Age and weight may
// still be unset, but when present they must be within bounds.
func ValidateProfileUpdate(p UserProfile) error {
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return &ValidationError{Field: "age", Message: "age must be between 1 and 120"}
	}
	if p.Weight != nil && (*p.Weight < MinWeight || *p.Weight > MaxWeight) {
		return &ValidationError{Field: "weight", Message: "weight must be between 1 and 500 kg"}
	}
	return ValidateChoices(p)
}

// NormalizeMealLog trims a submitted meal description. It returns an empty string
// for a deletion and a ValidationError when the text is too short to keep.
func NormalizeMealLog(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", nil
	}
	if utf8.RuneCountInString(description) < MinMealLogLength {
		return "", &ValidationError{Field: "loggedMeals", Message: "please describe your meals in at least 10 characters"}
	}
	return description, nil
}

// ValidateLoggedMeals checks meals submitted for analysis.
func ValidateLoggedMeals(loggedMeals string) error {
	normalized, err := NormalizeMealLog(loggedMeals)
	if err != nil {
		return err
	}
	if normalized == "" {
		return &ValidationError{Field: "loggedMeals", Message: "logged meals are required"}
	}
	return nil
}

// ParseLogDate parses a YYYY-MM-DD meal log date and rejects dates before
// 2000-01-01 or after today. Today is taken in the earliest time zone, so a user
// ahead of UTC can log their local date.
func ParseLogDate(value string, now time.Time) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}
	}
	latest := now.UTC().Add(maxUTCOffset)
	today := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return time.Time{}, &ValidationError{Field: "date", Message: "date cannot be in the future"}
	}
	if d.Before(earliestLogDate) {
		return time.Time{}, &ValidationError{Field: "date", Message: "date cannot be before 2000-01-01"}
	}
	return d, nil
}
