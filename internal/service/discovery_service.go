package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

const (
	trendingCacheTTL   = 10 * time.Minute
	trendingDetailMax  = 20
	ratingFilterTarget = 20
)

// DiscoveryService blends local catalog rows with provider results for
// search, trending and filter endpoints.
type DiscoveryService struct {
	movies     movieStore
	activities activityStore
	provider   metadataProvider
	genres     genreCatalog
	cache      cache
	imageBase  string
}

// NewDiscoveryService creates a DiscoveryService. rdb may be nil.
func NewDiscoveryService(movies movieStore, activities activityStore, provider metadataProvider, rdb *redis.Client, imageBase string) *DiscoveryService {
	c := cache{rdb: rdb}
	return &DiscoveryService{
		movies:     movies,
		activities: activities,
		provider:   provider,
		genres:     genreCatalog{provider: provider, cache: c},
		cache:      c,
		imageBase:  imageBase,
	}
}

// Genres returns the provider's canonical genre table.
func (s *DiscoveryService) Genres(ctx context.Context) ([]tmdb.Genre, error) {
	return s.genres.list(ctx)
}

// Search queries the provider by title and shapes the results.
func (s *DiscoveryService) Search(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	result, err := s.provider.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}

	table, err := s.genres.table(ctx)
	if err != nil {
		// Search results remain useful without genre names.
		table = map[int]string{}
	}

	out := &models.CatalogPage{
		Page:         result.Page,
		TotalPages:   result.TotalPages,
		TotalResults: result.TotalResults,
		Data:         make([]models.MovieSummary, 0, len(result.Results)),
	}
	for _, entry := range result.Results {
		if entry.ID == 0 || entry.Title == "" {
			continue
		}
		out.Data = append(out.Data, s.providerSummary(entry, table))
	}
	out.PageSize = len(out.Data)
	return out, nil
}

// Trending returns the detailed trending list for "day" or "week". The raw
// trending pool is cached; details are fetched for the first entries and
// entries without a title are skipped.
func (s *DiscoveryService) Trending(ctx context.Context, period string) ([]models.MovieSummary, error) {
	pool, err := s.trendingPool(ctx, period)
	if err != nil {
		return nil, err
	}

	detailed := make([]models.MovieSummary, 0, trendingDetailMax)
	for _, entry := range pool {
		if len(detailed) >= trendingDetailMax {
			break
		}
		if entry.ID == 0 {
			continue
		}
		details, err := s.provider.FetchByID(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}

		summary := models.MovieSummary{
			ID:        details.ID,
			Title:     details.Title,
			Overview:  details.Overview,
			PosterURL: posterURL(s.imageBase, details.PosterPath),
			Genres:    make([]string, 0, len(details.Genres)),
			Source:    models.SourceProvider,
		}
		if details.VoteAverage > 0 {
			rating := details.VoteAverage
			summary.Rating = &rating
		}
		for _, g := range details.Genres {
			summary.Genres = append(summary.Genres, g.Name)
		}
		detailed = append(detailed, summary)
	}
	return detailed, nil
}

func (s *DiscoveryService) trendingPool(ctx context.Context, period string) ([]tmdb.Movie, error) {
	cacheKey := "tmdb:trending:" + period
	if raw, ok := s.cache.get(ctx, cacheKey); ok {
		var pool []tmdb.Movie
		if json.Unmarshal([]byte(raw), &pool) == nil {
			return pool, nil
		}
	}

	pool, err := s.provider.Trending(ctx, period)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(pool); err == nil {
		s.cache.set(ctx, cacheKey, string(data), trendingCacheTTL)
	}
	return pool, nil
}

// ByGenres returns local movies tagged with any of the given provider genre
// ids, followed by provider discover results not yet in the catalog. New
// provider entries are persisted get-or-create style, without poster bytes.
func (s *DiscoveryService) ByGenres(ctx context.Context, genreIDs []int, userID *int64) ([]models.MovieSummary, error) {
	table, err := s.genres.table(ctx)
	if err != nil {
		return nil, err
	}
	names := genreNames(table, genreIDs)
	if len(names) == 0 {
		return nil, apperrors.Validation("genres", "no known genres for the given ids")
	}

	local, err := s.movies.ByGenres(ctx, names)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(local))
	result := make([]models.MovieSummary, 0, len(local))
	for i := range local {
		summary := s.localSummary(&local[i])
		s.overlay(ctx, userID, &summary)
		result = append(result, summary)
		seen[local[i].ID] = struct{}{}
	}

	discovered, err := s.provider.Discover(ctx, tmdb.DiscoverParams{GenreIDs: genreIDs})
	if err != nil {
		return nil, err
	}
	for _, entry := range discovered.Results {
		if entry.ID == 0 || entry.Title == "" {
			continue
		}
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		if err := s.movies.Upsert(ctx, providerMovie(entry, table)); err != nil {
			return nil, fmt.Errorf("persist discovered movie %d: %w", entry.ID, err)
		}

		summary := s.providerSummary(entry, table)
		s.overlay(ctx, userID, &summary)
		result = append(result, summary)
		seen[entry.ID] = struct{}{}
	}
	return result, nil
}

// ByRating returns movies whose provider rating falls in [min, max],
// topping up from the provider when the local catalog yields fewer than
// twenty results.
func (s *DiscoveryService) ByRating(ctx context.Context, min, max float64, userID *int64) ([]models.MovieSummary, error) {
	if min < 0 || max > 10 || min > max {
		return nil, apperrors.Validation("rating", "range must satisfy 0 <= min <= max <= 10")
	}

	local, err := s.movies.ByRatingRange(ctx, min, max)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(local))
	result := make([]models.MovieSummary, 0, len(local))
	for i := range local {
		summary := s.localSummary(&local[i])
		s.overlay(ctx, userID, &summary)
		result = append(result, summary)
		seen[local[i].ID] = struct{}{}
	}

	if len(result) >= ratingFilterTarget {
		return result, nil
	}

	table, err := s.genres.table(ctx)
	if err != nil {
		table = map[int]string{}
	}
	discovered, err := s.provider.Discover(ctx, tmdb.DiscoverParams{
		VoteGTE:   min,
		VoteLTE:   max,
		HasVoteLT: true,
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range discovered.Results {
		if len(result) >= ratingFilterTarget {
			break
		}
		if entry.ID == 0 || entry.Title == "" {
			continue
		}
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		if err := s.movies.Upsert(ctx, providerMovie(entry, table)); err != nil {
			return nil, fmt.Errorf("persist discovered movie %d: %w", entry.ID, err)
		}

		summary := s.providerSummary(entry, table)
		s.overlay(ctx, userID, &summary)
		result = append(result, summary)
		seen[entry.ID] = struct{}{}
	}
	return result, nil
}

func (s *DiscoveryService) localSummary(m *models.Movie) models.MovieSummary {
	return models.MovieSummary{
		ID:        m.ID,
		Title:     m.Title,
		Overview:  m.Overview,
		Rating:    m.Rating,
		PosterURL: m.PosterURL(s.imageBase),
		Genres:    m.Genres,
		Source:    models.SourceLocal,
	}
}

func (s *DiscoveryService) providerSummary(entry tmdb.Movie, table map[int]string) models.MovieSummary {
	summary := models.MovieSummary{
		ID:        entry.ID,
		Title:     entry.Title,
		Overview:  entry.Overview,
		PosterURL: posterURL(s.imageBase, entry.PosterPath),
		Genres:    genreNames(table, entry.GenreIDs),
		Source:    models.SourceProvider,
	}
	if entry.VoteAverage > 0 {
		rating := entry.VoteAverage
		summary.Rating = &rating
	}
	return summary
}

func (s *DiscoveryService) overlay(ctx context.Context, userID *int64, summary *models.MovieSummary) {
	if userID == nil {
		return
	}
	activity, err := s.activities.Get(ctx, *userID, summary.ID)
	if err != nil {
		return
	}
	summary.UserRating = activity.Rating
	summary.Favorite = activity.Favorite
	summary.Watched = activity.Watched
	summary.WatchLater = activity.WatchLater
}

func posterURL(imageBase, posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return imageBase + posterPath
}
