package handler

import (
	"github.com/gofiber/fiber/v3"

	"cinelog-api/internal/models"
	"cinelog-api/internal/service"
)

// ActivityHandler handles the per-user interaction endpoints: ratings,
// flags, reviews and the derived listings.
type ActivityHandler struct {
	svc *service.ActivityService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// RateMovie sets the caller's rating for a movie. POST and PUT share this
// handler; the status code reports whether the activity row was created.
// @Summary Rate a movie
// @Tags activity
// @Accept json
// @Produce json
// @Param id path int true "Movie ID"
// @Param body body models.RateRequest true "Rating"
// @Success 200 {object} models.UserActivity
// @Success 201 {object} models.UserActivity
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id}/rating [post]
func (h *ActivityHandler) RateMovie(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.RateRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	activity, created, err := h.svc.Rate(c.Context(), authedUserID(c), id, req.Rating)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(createdStatus(created)).JSON(activity)
}

// DeleteRating clears the caller's rating; the activity row survives.
// @Summary Remove a rating
// @Tags activity
// @Produce json
// @Param id path int true "Movie ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id}/rating [delete]
func (h *ActivityHandler) DeleteRating(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.svc.ClearRating(c.Context(), authedUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetFlag returns a handler that turns on the given activity flag.
func (h *ActivityHandler) SetFlag(flag string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := movieID(c)
		if err != nil {
			return respondError(c, err)
		}
		activity, created, err := h.svc.SetFlag(c.Context(), authedUserID(c), id, flag)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(createdStatus(created)).JSON(activity)
	}
}

// UnsetFlag returns a handler that turns off the given activity flag.
func (h *ActivityHandler) UnsetFlag(flag string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := movieID(c)
		if err != nil {
			return respondError(c, err)
		}
		if err := h.svc.UnsetFlag(c.Context(), authedUserID(c), id, flag); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ReviewMovie attaches or replaces the caller's review for a movie.
// @Summary Review a movie
// @Tags activity
// @Accept json
// @Produce json
// @Param id path int true "Movie ID"
// @Param body body models.ReviewRequest true "Review text"
// @Success 200 {object} models.UserActivity
// @Success 201 {object} models.UserActivity
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id}/review [post]
func (h *ActivityHandler) ReviewMovie(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req models.ReviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	activity, created, err := h.svc.Review(c.Context(), authedUserID(c), id, req.Review)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(createdStatus(created)).JSON(activity)
}

// DeleteReview removes the caller's review; the activity row survives.
// @Summary Remove a review
// @Tags activity
// @Produce json
// @Param id path int true "Movie ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id}/review [delete]
func (h *ActivityHandler) DeleteReview(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.svc.DeleteReview(c.Context(), authedUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Ratings lists the caller's rated movies.
// @Summary List rated movies
// @Tags activity
// @Produce json
// @Success 200 {array} models.MovieSummary
// @Router /users/me/ratings [get]
func (h *ActivityHandler) Ratings(c fiber.Ctx) error {
	result, err := h.svc.Rated(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// Favorites lists the caller's favorited movies.
// @Summary List favorite movies
// @Tags activity
// @Produce json
// @Success 200 {array} models.MovieSummary
// @Router /users/me/favorites [get]
func (h *ActivityHandler) Favorites(c fiber.Ctx) error {
	result, err := h.svc.Favorites(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// Watched lists the movies the caller has marked watched.
// @Summary List watched movies
// @Tags activity
// @Produce json
// @Success 200 {array} models.MovieSummary
// @Router /users/me/watched [get]
func (h *ActivityHandler) Watched(c fiber.Ctx) error {
	result, err := h.svc.Watched(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// Watchlist lists the caller's watch-later movies.
// @Summary List watch-later movies
// @Tags activity
// @Produce json
// @Success 200 {array} models.MovieSummary
// @Router /users/me/watch-later [get]
func (h *ActivityHandler) Watchlist(c fiber.Ctx) error {
	result, err := h.svc.Watchlist(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// History lists every interaction of the caller, labelled by kind.
// @Summary Activity history
// @Tags activity
// @Produce json
// @Success 200 {array} models.HistoryEntry
// @Router /users/me/history [get]
func (h *ActivityHandler) History(c fiber.Ctx) error {
	result, err := h.svc.History(c.Context(), authedUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

func createdStatus(created bool) int {
	if created {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}
