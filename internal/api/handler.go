package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nutriai/internal/auth"
	"nutriai/internal/diet"
	"nutriai/internal/flow"
)

// storeTimeout bounds every profile and meal log store call.
const storeTimeout = 5 * time.Second

// ProfileStore defines the interface for profile persistence.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*diet.UserProfile, error)
	PutProfile(ctx context.Context, userID string, profile diet.UserProfile) error
}

// MealLogStore defines the interface for meal log persistence.
type MealLogStore interface {
	GetMealLog(ctx context.Context, userID, date string) (string, bool, error)
	PutMealLog(ctx context.Context, userID, date, description string) error
	ListMealLogs(ctx context.Context, userID string) (map[string]string, error)
}

// Recommender defines the interface of the diet recommendation flow.
type Recommender interface {
	Recommend(ctx context.Context, profile diet.UserProfile) (*diet.DietRecommendation, error)
}

// Analyzer defines the interface of the meal analysis flow.
type Analyzer interface {
	Analyze(ctx context.Context, in flow.AnalysisInput) (*diet.AnalysisResult, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Profiles    ProfileStore
	MealLogs    MealLogStore
	Recommender Recommender
	Analyzer    Analyzer

	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(profiles ProfileStore, mealLogs MealLogStore, recommender Recommender, analyzer Analyzer) *Handler {
	return &Handler{
		Profiles:    profiles,
		MealLogs:    mealLogs,
		Recommender: recommender,
		Analyzer:    analyzer,
		now:         time.Now,
	}
}

// Health reports that the process is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetProfile returns the stored profile, or the default profile on first visit.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.loadProfile(c)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile replaces the stored profile.
func (h *Handler) PutProfile(c *gin.Context) {
	user := auth.CurrentUser(c)

	var profile diet.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile: " + err.Error()})
		return
	}
	if err := diet.ValidateProfileUpdate(profile); err != nil {
		h.writeError(c, err, profile)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Profiles.PutProfile(ctx, user.ID, profile); err != nil {
		h.writeError(c, err, profile)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListMealLogs returns every logged day of the user keyed by date.
func (h *Handler) ListMealLogs(c *gin.Context) {
	user := auth.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	logs, err := h.MealLogs.ListMealLogs(ctx, user.ID)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetMealLog returns the meals logged for one day.
func (h *Handler) GetMealLog(c *gin.Context) {
	user := auth.CurrentUser(c)

	date, err := h.logDate(c.Param("date"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	description, found, err := h.MealLogs.GetMealLog(ctx, user.ID, date)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no meals logged for " + date})
		return
	}
	c.JSON(http.StatusOK, diet.MealLogEntry{Date: date, Description: description})
}

type mealLogRequest struct {
	Description string `json:"description"`
}

// PutMealLog saves the meals logged for one day. An empty description deletes
// the entry.
func (h *Handler) PutMealLog(c *gin.Context) {
	user := auth.CurrentUser(c)

	date, err := h.logDate(c.Param("date"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	var req mealLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal log: " + err.Error()})
		return
	}
	entry := diet.MealLogEntry{Date: date, Description: req.Description}

	description, err := diet.NormalizeMealLog(req.Description)
	if err != nil {
		h.writeError(c, err, entry)
		return
	}
	entry.Description = description

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.MealLogs.PutMealLog(ctx, user.ID, date, description); err != nil {
		h.writeError(c, err, entry)
		return
	}
	if description == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Recommend runs the diet recommendation flow for the submitted profile, or for
// the stored profile when the body is empty.
func (h *Handler) Recommend(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var profile diet.UserProfile
	if len(strings.TrimSpace(string(body))) == 0 {
		stored, err := h.loadProfile(c)
		if err != nil {
			h.writeError(c, err, nil)
			return
		}
		profile = *stored
	} else if err := json.Unmarshal(body, &profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile: " + err.Error()})
		return
	}

	rec, err := h.Recommender.Recommend(c.Request.Context(), profile)
	if err != nil {
		h.writeError(c, err, profile)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type analysisRequest struct {
	RecommendedDiet string `json:"recommendedDiet"`
	LoggedMeals     string `json:"loggedMeals"`
	UserProfile     string `json:"userProfile"`
	Date            string `json:"date"`
}

// Analyze runs the meal analysis flow. Missing logged meals are read from the
// log of the given date and a missing profile from the stored profile.
func (h *Handler) Analyze(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis request: " + err.Error()})
		return
	}

	if strings.TrimSpace(req.RecommendedDiet) == "" {
		h.writeError(c, &diet.ValidationError{Field: "recommendedDiet", Message: "generate a diet recommendation first"}, req)
		return
	}

	if strings.TrimSpace(req.LoggedMeals) == "" && req.Date != "" {
		date, err := h.logDate(req.Date)
		if err != nil {
			h.writeError(c, err, req)
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		description, _, err := h.MealLogs.GetMealLog(ctx, user.ID, date)
		cancel()
		if err != nil {
			h.writeError(c, err, req)
			return
		}
		req.LoggedMeals = description
	}
	if err := diet.ValidateLoggedMeals(req.LoggedMeals); err != nil {
		h.writeError(c, err, req)
		return
	}

	if strings.TrimSpace(req.UserProfile) == "" {
		profile, err := h.loadProfile(c)
		if err != nil {
			h.writeError(c, err, req)
			return
		}
		if profile.Age == nil || profile.Weight == nil {
			h.writeError(c, &diet.ValidationError{
				Field:   "userProfile",
				Message: "please complete your profile information (age and weight) before analyzing meals",
			}, req)
			return
		}
		req.UserProfile = profile.Describe()
	}

	result, err := h.Analyzer.Analyze(c.Request.Context(), flow.AnalysisInput{
		RecommendedDiet: req.RecommendedDiet,
		LoggedMeals:     strings.TrimSpace(req.LoggedMeals),
		UserProfile:     req.UserProfile,
	})
	if err != nil {
		h.writeError(c, err, req)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) loadProfile(c *gin.Context) (*diet.UserProfile, error) {
	user := auth.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	profile, err := h.Profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		def := diet.DefaultProfile()
		return &def, nil
	}
	return profile, nil
}

func (h *Handler) logDate(value string) (string, error) {
	d, err := diet.ParseLogDate(value, h.now().UTC())
	if err != nil {
		return "", err
	}
	return d.Format(diet.DateLayout), nil
}

// writeError maps err to a status code. Storage failures echo submitted back so
// the client keeps its form state.
func (h *Handler) writeError(c *gin.Context, err error, submitted any) {
	logger := zerolog.Ctx(c.Request.Context())

	var validationErr *diet.ValidationError
	var malformedErr *diet.MalformedResponseError
	var storageErr *diet.StorageError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	case errors.As(err, &storageErr):
		logger.Error().Err(err).Msg("storage failure")
		body := gin.H{"error": "Failed to save your data. Please try again."}
		if submitted != nil {
			body["submitted"] = submitted
		}
		c.JSON(http.StatusInternalServerError, body)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn().Err(err).Msg("request timed out")
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "The request timed out. Please try again."})
	case errors.As(err, &malformedErr):
		logger.Error().Err(err).Msg("malformed AI response")
		c.JSON(http.StatusBadGateway, gin.H{"error": "The AI service returned an unexpected response. Please try again."})
	default:
		logger.Error().Err(err).Msg("AI service failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "The AI service is unavailable. Please try again later."})
	}
}
