package flow

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"nutriai/internal/diet"
)

// RecommendationSchema is the response shape declared for the recommendation prompt.
var RecommendationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"recommendation": {
			Type:        genai.TypeString,
			Description: "The generated diet recommendation based on the user input.",
		},
		"meals": {
			Type:        genai.TypeArray,
			Description: "A list of recommended meals.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {
						Type:        genai.TypeString,
						Description: "The name of the meal.",
					},
					"description": {
						Type:        genai.TypeString,
						Description: "A description of the meal including portion sizes.",
					},
					"photoDataUri": {
						Type:        genai.TypeString,
						Description: "A photo of the meal as a data URI: data:<mimetype>;base64,<encoded_data>. Leave empty; it is filled in afterwards.",
					},
				},
				Required: []string{"name", "description"},
			},
		},
	},
	Required: []string{"recommendation", "meals"},
}

// AnalysisSchema is the response shape declared for the meal analysis prompt.
var AnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"alignmentAssessment": {
			Type:        genai.TypeString,
			Description: "An assessment of how well the logged meals align with the recommended diet.",
		},
		"suggestions": {
			Type:        genai.TypeString,
			Description: "Specific suggestions for adjustments to the user's diet based on the analysis.",
		},
	},
	Required: []string{"alignmentAssessment", "suggestions"},
}

// preferenceRules maps each dietary preference to the constraint stated in the prompt.
var preferenceRules = map[diet.DietaryPreference]string{
	diet.Vegetarian: "Only suggest vegetarian meals. Do not include meat, poultry or fish.",
	diet.NonVeg:     "Meals can include meat and fish.",
	diet.Vegan:      "Only suggest vegan meals made entirely from plants. Do not include meat, fish, eggs, dairy or honey.",
	diet.AnyDiet:    "Provide a balanced mix of general healthy options without restrictions.",
}

func recommendationPrompt(p diet.UserProfile) string {
	return fmt.Sprintf(`You are an expert nutritionist specializing in creating personalized diet recommendations.

You will use the age, weight, activity level, dietary goals, and dietary preference to generate a diet recommendation, including suggested foods and portion sizes for each meal.

Age: %d
Weight: %gkg
Activity Level: %s
Dietary Goals: %s
Dietary Preference: %s

Based on this information, provide a personalized diet recommendation. %s

Return a JSON object with a "recommendation" narrative and a "meals" array. Each meal has a "name" and a "description" that includes portion sizes.`,
		*p.Age, *p.Weight, p.ActivityLevel, p.DietaryGoals, p.DietaryPreference, preferenceRules[p.DietaryPreference])
}

// imagePromptParts returns the two prompt parts sent to the image model for one meal.
func imagePromptParts(m diet.Meal, pref diet.DietaryPreference) []string {
	subject := string(pref)
	if pref == diet.AnyDiet || pref == "" {
		subject = "food"
	}
	return []string{
		fmt.Sprintf("Generate an image of %s (%s)", m.Name, subject),
		m.Description,
	}
}

func analysisPrompt(in AnalysisInput) string {
	return fmt.Sprintf(`You are a nutrition expert analyzing a user's logged meals against their recommended diet.

User Profile: %s
Recommended Diet: %s
Logged Meals: %s

Provide an assessment of how well the logged meals align with the recommended diet and offer specific suggestions for adjustments.
Be concise and actionable.

Return a JSON object with the keys "alignmentAssessment" and "suggestions".`,
		in.UserProfile, in.RecommendedDiet, in.LoggedMeals)
}
