// Package flow implements the two AI flows: diet recommendation with meal
// images, and analysis of logged meals against a recommendation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"

	"nutriai/internal/diet"
	"nutriai/internal/photo"
)

// TextModel generates a JSON document matching schema for prompt.
type TextModel interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// ImageModel generates one image from a multi-part text prompt.
type ImageModel interface {
	GenerateImage(ctx context.Context, parts ...string) (mimeType string, data []byte, err error)
}

// ErrEmptyImage is returned when the image model answers without image data.
var ErrEmptyImage = errors.New("image model returned no image")

// Recommender runs the diet recommendation flow.
type Recommender struct {
	text   TextModel
	images ImageModel
}

// NewRecommender creates a new Recommender.
func NewRecommender(text TextModel, images ImageModel) *Recommender {
	return &Recommender{text: text, images: images}
}

// Recommend asks the text model for a diet plan for profile and then generates
// one image per meal, in order and one at a time. Any failure discards the
// whole result.
func (r *Recommender) Recommend(ctx context.Context, profile diet.UserProfile) (*diet.DietRecommendation, error) {
	if err := diet.ValidateForRecommendation(profile); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	start := time.Now()

	text, err := r.text.GenerateStructured(ctx, recommendationPrompt(profile), RecommendationSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendation: %w", err)
	}

	rec, err := decodeRecommendation(text)
	if err != nil {
		logger.Warn().Err(err).Msg("recommendation response did not match schema")
		return nil, err
	}

	for i := range rec.Meals {
		meal := &rec.Meals[i]
		mimeType, data, err := r.images.GenerateImage(ctx, imagePromptParts(*meal, profile.DietaryPreference)...)
		if err != nil {
			return nil, fmt.Errorf("failed to generate image for meal %q: %w", meal.Name, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("failed to generate image for meal %q: %w", meal.Name, ErrEmptyImage)
		}
		mimeType, data = photo.Normalize(mimeType, data)
		meal.PhotoDataURI = photo.EncodeDataURI(mimeType, data)
	}

	logger.Info().
		Int("meals", len(rec.Meals)).
		Str("dietary_preference", string(profile.DietaryPreference)).
		Dur("took", time.Since(start)).
		Msg("diet recommendation generated")

	return rec, nil
}

// AnalysisInput is what the meal analysis flow compares.
type AnalysisInput struct {
	RecommendedDiet string `json:"recommendedDiet"`
	LoggedMeals     string `json:"loggedMeals"`
	UserProfile     string `json:"userProfile"`
}

// Analyzer runs the meal analysis flow.
type Analyzer struct {
	text TextModel
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(text TextModel) *Analyzer {
	return &Analyzer{text: text}
}

// Analyze assesses how well the logged meals follow the recommended diet.
func (a *Analyzer) Analyze(ctx context.Context, in AnalysisInput) (*diet.AnalysisResult, error) {
	if in.LoggedMeals == "" {
		return nil, &diet.ValidationError{Field: "loggedMeals", Message: "logged meals are required"}
	}

	text, err := a.text.GenerateStructured(ctx, analysisPrompt(in), AnalysisSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meal analysis: %w", err)
	}

	result, err := decodeAnalysis(text)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("analysis response did not match schema")
		return nil, err
	}
	return result, nil
}
