package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutriai/internal/diet"
)

var (
	errNoJSON       = errors.New("could not find JSON object in response")
	errMissingField = errors.New("missing required field")
)

// extractJSON returns the outermost JSON object of a model response, which
// might be wrapped in markdown or prose.
func extractJSON(text string) (string, error) {
	startIndex := strings.Index(text, "{")
	endIndex := strings.LastIndex(text, "}")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return "", errNoJSON
	}
	return text[startIndex : endIndex+1], nil
}

type mealResponse struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	PhotoDataURI *string `json:"photoDataUri"`
}

type recommendationResponse struct {
	Recommendation *string         `json:"recommendation"`
	Meals          *[]mealResponse `json:"meals"`
}

type analysisResponse struct {
	AlignmentAssessment *string `json:"alignmentAssessment"`
	Suggestions         *string `json:"suggestions"`
}

func decodeRecommendation(text string) (*diet.DietRecommendation, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: err}
	}

	var resp recommendationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: err}
	}
	if resp.Recommendation == nil {
		return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: fmt.Errorf("%w: recommendation", errMissingField)}
	}
	if resp.Meals == nil {
		return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: fmt.Errorf("%w: meals", errMissingField)}
	}

	rec := &diet.DietRecommendation{
		Recommendation: *resp.Recommendation,
		Meals:          make([]diet.Meal, 0, len(*resp.Meals)),
	}
	for i, m := range *resp.Meals {
		if m.Name == nil {
			return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: fmt.Errorf("%w: meals[%d].name", errMissingField, i)}
		}
		if m.Description == nil {
			return nil, &diet.MalformedResponseError{Flow: "recommendation", Err: fmt.Errorf("%w: meals[%d].description", errMissingField, i)}
		}
		rec.Meals = append(rec.Meals, diet.Meal{Name: *m.Name, Description: *m.Description})
	}
	return rec, nil
}

func decodeAnalysis(text string) (*diet.AnalysisResult, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, &diet.MalformedResponseError{Flow: "analysis", Err: err}
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &diet.MalformedResponseError{Flow: "analysis", Err: err}
	}
	if resp.AlignmentAssessment == nil {
		return nil, &diet.MalformedResponseError{Flow: "analysis", Err: fmt.Errorf("%w: alignmentAssessment", errMissingField)}
	}
	if resp.Suggestions == nil {
		return nil, &diet.MalformedResponseError{Flow: "analysis", Err: fmt.Errorf("%w: suggestions", errMissingField)}
	}
	return &diet.AnalysisResult{
		AlignmentAssessment: *resp.AlignmentAssessment,
		Suggestions:         *resp.Suggestions,
	}, nil
}
