package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"cinelog-api/internal/models"
	"cinelog-api/internal/service"
)

// MovieHandler handles HTTP requests for the catalog and discovery
// endpoints.
type MovieHandler struct {
	catalog    *service.CatalogService
	discovery  *service.DiscoveryService
	activities *service.ActivityService
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(catalog *service.CatalogService, discovery *service.DiscoveryService, activities *service.ActivityService) *MovieHandler {
	return &MovieHandler{catalog: catalog, discovery: discovery, activities: activities}
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MovieHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "cinelog-api",
	})
}

// ListMovies returns a paginated list of the local catalog.
// @Summary List movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} models.CatalogPage
// @Failure 500 {object} ErrorResponse
// @Router /movies [get]
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	params := models.CatalogParams{
		Page:     fiber.Query(c, "page", 1),
		PageSize: fiber.Query(c, "page_size", 20),
	}

	result, err := h.catalog.List(c.Context(), params)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetMovieDetail returns one movie, fetched from TMDB on a catalog miss.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.MovieDetailResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovieDetail(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}

	detail, err := h.catalog.Detail(c.Context(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// SearchMovies proxies a title search to TMDB.
// @Summary Search movies
// @Tags movies
// @Produce json
// @Param q query string true "Search query"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.CatalogPage
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/search [get]
func (h *MovieHandler) SearchMovies(c fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter 'q' is required"})
	}

	result, err := h.discovery.Search(c.Context(), query, fiber.Query(c, "page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Trending returns the TMDB trending list with full details.
// @Summary Trending movies
// @Tags movies
// @Produce json
// @Param period query string false "Trending window" Enums(day,week) default(week)
// @Success 200 {array} models.MovieSummary
// @Failure 503 {object} ErrorResponse
// @Router /movies/trending [get]
func (h *MovieHandler) Trending(c fiber.Ctx) error {
	period := c.Query("period", "week")
	if period != "day" && period != "week" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "period must be 'day' or 'week'"})
	}

	result, err := h.discovery.Trending(c.Context(), period)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"period": period, "total": len(result), "data": result})
}

// Genres returns the TMDB genre table.
// @Summary List genres
// @Tags movies
// @Produce json
// @Success 200 {array} tmdb.Genre
// @Failure 503 {object} ErrorResponse
// @Router /movies/genres [get]
func (h *MovieHandler) Genres(c fiber.Ctx) error {
	genres, err := h.discovery.Genres(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"genres": genres})
}

// DiscoverByGenres returns local and provider movies for the given genre ids.
// @Summary Discover movies by genre
// @Tags movies
// @Produce json
// @Param genres query string true "Comma-separated TMDB genre ids"
// @Success 200 {array} models.MovieSummary
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/discover [get]
func (h *MovieHandler) DiscoverByGenres(c fiber.Ctx) error {
	ids, err := parseGenreIDs(c.Query("genres"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "genres must be a comma-separated list of ids"})
	}

	result, err := h.discovery.ByGenres(c.Context(), ids, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// ByRating returns movies whose TMDB rating falls in [min, max].
// @Summary Filter movies by rating
// @Tags movies
// @Produce json
// @Param min query number false "Minimum rating" default(0)
// @Param max query number false "Maximum rating" default(10)
// @Success 200 {array} models.MovieSummary
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/by-rating [get]
func (h *MovieHandler) ByRating(c fiber.Ctx) error {
	min := fiber.Query(c, "min", 0.0)
	max := fiber.Query(c, "max", 10.0)

	result, err := h.discovery.ByRating(c.Context(), min, max, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(result), "data": result})
}

// MovieReviews returns all reviews for a movie.
// @Summary List reviews for a movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {array} models.ReviewEntry
// @Failure 500 {object} ErrorResponse
// @Router /movies/{id}/reviews [get]
func (h *MovieHandler) MovieReviews(c fiber.Ctx) error {
	id, err := movieID(c)
	if err != nil {
		return respondError(c, err)
	}

	reviews, err := h.activities.Reviews(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"movie_id": id, "total": len(reviews), "reviews": reviews})
}

// SyncMovies triggers a sync of movies from TMDB.
// @Summary Sync movies from TMDB
// @Tags admin
// @Produce json
// @Param pages query int false "Number of pages to sync" default(5)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /admin/sync [post]
func (h *MovieHandler) SyncMovies(c fiber.Ctx) error {
	pages := fiber.Query(c, "pages", 5)
	if pages < 1 {
		pages = 1
	}
	if pages > 50 {
		pages = 50
	}

	count, err := h.catalog.Sync(c.Context(), pages)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":       "sync completed",
		"movies_synced": count,
		"pages":         pages,
	})
}

func parseGenreIDs(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id < 1 {
			return nil, strconv.ErrSyntax
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, strconv.ErrSyntax
	}
	return ids, nil
}
