package handler

import (
	"github.com/gofiber/fiber/v3"

	"cinelog-api/internal/service"
)

// RecommendationHandler serves the personalized recommendation endpoint.
type RecommendationHandler struct {
	svc *service.RecommendationService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(svc *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// Recommendations returns the caller's composed recommendation list.
// @Summary Personalized recommendations
// @Tags recommendations
// @Produce json
// @Success 200 {object} models.RecommendationResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /movies/recommendations [get]
func (h *RecommendationHandler) Recommendations(c fiber.Ctx) error {
	result, err := h.svc.Recommend(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
