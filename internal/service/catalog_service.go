package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

const catalogListCacheTTL = 5 * time.Minute

// Resolution sources reported on the detail endpoint.
const (
	sourceDatabase   = "database"
	sourceTMDBCached = "tmdb_cached"
)

// CatalogService implements the cache-or-fetch resolver, the local catalog
// listing and the TMDB bulk sync.
type CatalogService struct {
	movies     movieStore
	activities activityStore
	provider   metadataProvider
	cache      cache
	imageBase  string
}

// NewCatalogService creates a CatalogService. rdb may be nil; caching then
// degrades to plain store reads.
func NewCatalogService(movies movieStore, activities activityStore, provider metadataProvider, rdb *redis.Client, imageBase string) *CatalogService {
	return &CatalogService{
		movies:     movies,
		activities: activities,
		provider:   provider,
		cache:      cache{rdb: rdb},
		imageBase:  imageBase,
	}
}

// Resolve returns the movie for the given provider id, filling the local
// catalog from the provider on a miss. The cache never invalidates: once a
// movie is stored, later calls never re-contact the provider.
func (s *CatalogService) Resolve(ctx context.Context, id int64) (*models.Movie, error) {
	movie, _, err := s.resolve(ctx, id)
	return movie, err
}

func (s *CatalogService) resolve(ctx context.Context, id int64) (*models.Movie, bool, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err == nil {
		return movie, true, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	details, err := s.provider.FetchByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	movie = &models.Movie{
		ID:         details.ID,
		Title:      details.Title,
		Overview:   details.Overview,
		Year:       details.Year(),
		PosterPath: details.PosterPath,
		Genres:     make([]string, 0, len(details.Genres)),
	}
	if details.VoteAverage > 0 {
		rating := details.VoteAverage
		movie.Rating = &rating
	}
	for _, g := range details.Genres {
		movie.Genres = append(movie.Genres, g.Name)
	}

	// Poster failures are absorbed; the movie is stored without image bytes.
	if details.PosterPath != "" {
		poster, err := s.provider.DownloadPoster(ctx, details.PosterPath)
		if err != nil {
			slog.Warn("poster download failed", "movie_id", id, "error", err)
		} else {
			movie.Poster = poster
		}
	}

	if err := s.movies.Upsert(ctx, movie); err != nil {
		return nil, false, err
	}
	return movie, false, nil
}

// Detail resolves a movie and overlays the requesting user's activity state.
// userID is nil for anonymous requests.
func (s *CatalogService) Detail(ctx context.Context, id int64, userID *int64) (*models.MovieDetailResponse, error) {
	movie, cached, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &models.MovieDetailResponse{
		ID:        movie.ID,
		Title:     movie.Title,
		Overview:  movie.Overview,
		Year:      movie.Year,
		Genres:    movie.Genres,
		Rating:    movie.Rating,
		PosterURL: movie.PosterURL(s.imageBase),
		Source:    sourceTMDBCached,
	}
	if cached {
		resp.Source = sourceDatabase
	}

	if userID != nil {
		activity, err := s.activities.Get(ctx, *userID, movie.ID)
		if err == nil {
			resp.UserRating = activity.Rating
			resp.Favorite = activity.Favorite
			resp.Watched = activity.Watched
			resp.WatchLater = activity.WatchLater
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return resp, nil
}

// List returns a page of the local catalog.
func (s *CatalogService) List(ctx context.Context, params models.CatalogParams) (*models.CatalogPage, error) {
	params.Validate()

	cacheKey := fmt.Sprintf("catalog:list:%d:%d", params.Page, params.PageSize)
	if raw, ok := s.cache.get(ctx, cacheKey); ok {
		var page models.CatalogPage
		if json.Unmarshal([]byte(raw), &page) == nil {
			slog.Debug("cache hit", "key", cacheKey)
			return &page, nil
		}
	}

	movies, total, err := s.movies.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	page := &models.CatalogPage{
		Page:         params.Page,
		PageSize:     params.PageSize,
		TotalPages:   totalPages,
		TotalResults: total,
		Data:         make([]models.MovieSummary, 0, len(movies)),
	}
	for i := range movies {
		page.Data = append(page.Data, s.summary(&movies[i], models.SourceLocal))
	}

	if data, err := json.Marshal(page); err == nil {
		s.cache.set(ctx, cacheKey, string(data), catalogListCacheTTL)
	}
	return page, nil
}

// Sync seeds the catalog from the provider's discover listing, page by page.
// Individual page failures are logged and skipped.
func (s *CatalogService) Sync(ctx context.Context, pages int) (int, error) {
	slog.Info("starting catalog sync", "pages", pages)

	table, err := genreCatalog{provider: s.provider, cache: s.cache}.table(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch genre table: %w", err)
	}

	synced := 0
	for page := 1; page <= pages; page++ {
		result, err := s.provider.Discover(ctx, tmdb.DiscoverParams{Page: page})
		if err != nil {
			slog.Error("failed to fetch discover page", "page", page, "error", err)
			continue
		}

		for _, entry := range result.Results {
			if entry.ID == 0 || entry.Title == "" {
				continue
			}
			movie := providerMovie(entry, table)
			if err := s.movies.Upsert(ctx, movie); err != nil {
				slog.Error("failed to upsert movie", "title", movie.Title, "error", err)
				continue
			}
			synced++
		}
		slog.Info("synced page", "page", page, "movies", len(result.Results))

		if page >= result.TotalPages && result.TotalPages > 0 {
			break
		}
	}

	s.cache.invalidate(ctx, "catalog:*")
	slog.Info("catalog sync completed", "total_synced", synced)
	return synced, nil
}

func (s *CatalogService) summary(m *models.Movie, source string) models.MovieSummary {
	return models.MovieSummary{
		ID:        m.ID,
		Title:     m.Title,
		Overview:  m.Overview,
		Rating:    m.Rating,
		PosterURL: m.PosterURL(s.imageBase),
		Genres:    m.Genres,
		Source:    source,
	}
}

// providerMovie converts a paginated provider entry to a catalog record,
// mapping genre ids through the canonical table.
func providerMovie(entry tmdb.Movie, table map[int]string) *models.Movie {
	movie := &models.Movie{
		ID:         entry.ID,
		Title:      entry.Title,
		Overview:   entry.Overview,
		PosterPath: entry.PosterPath,
		Genres:     genreNames(table, entry.GenreIDs),
	}
	if entry.VoteAverage > 0 {
		rating := entry.VoteAverage
		movie.Rating = &rating
	}
	if len(entry.ReleaseDate) >= 4 {
		var y int
		if _, err := fmt.Sscanf(entry.ReleaseDate[:4], "%d", &y); err == nil && y >= 1800 && y <= 2100 {
			movie.Year = &y
		}
	}
	return movie
}
