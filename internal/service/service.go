// Package service holds the business logic: cache-or-fetch resolution,
// catalog discovery, user activity upserts and the recommendation engine.
// Services depend on small store/provider interfaces so tests can substitute
// in-memory fakes for PostgreSQL and the TMDB API.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

// movieStore is the movie/genre persistence surface
// (implemented by repository.MovieRepository).
type movieStore interface {
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
	Upsert(ctx context.Context, m *models.Movie) error
	List(ctx context.Context, params models.CatalogParams) ([]models.Movie, int, error)
	ByGenres(ctx context.Context, names []string) ([]models.Movie, error)
	ByRatingRange(ctx context.Context, min, max float64) ([]models.Movie, error)
	Candidates(ctx context.Context, genres []string, excludeUserID int64, limit int) ([]models.Movie, error)
}

// activityStore is the interaction-row persistence surface
// (implemented by repository.ActivityRepository).
type activityStore interface {
	Get(ctx context.Context, userID, movieID int64) (*models.UserActivity, error)
	Upsert(ctx context.Context, userID, movieID int64, patch models.ActivityPatch) (*models.UserActivity, error)
	ClearField(ctx context.Context, userID, movieID int64, field string) error
	UnsetFlag(ctx context.Context, userID, movieID int64, flag string) error
	ListByFlag(ctx context.Context, userID int64, flag string) ([]models.ActivityMovie, error)
	ListRated(ctx context.Context, userID int64) ([]models.ActivityMovie, error)
	History(ctx context.Context, userID int64) ([]models.ActivityMovie, error)
	Reviews(ctx context.Context, movieID int64) ([]models.ReviewEntry, error)
	GenreStats(ctx context.Context, userID int64, threshold float64) ([]models.GenreStat, error)
	InterestGenres(ctx context.Context, userID int64, threshold float64) ([]string, error)
	RatedMovieIDs(ctx context.Context, userID int64) (map[int64]struct{}, error)
}

// userStore is the account persistence surface
// (implemented by repository.UserRepository).
type userStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id int64, name, email, passwordHash *string) (*models.User, error)
}

// metadataProvider is the external provider contract
// (implemented by tmdb.Client).
type metadataProvider interface {
	FetchByID(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	Search(ctx context.Context, query string, page int) (*tmdb.Page, error)
	Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.Page, error)
	Trending(ctx context.Context, period string) ([]tmdb.Movie, error)
	GenreList(ctx context.Context) ([]tmdb.Genre, error)
	DownloadPoster(ctx context.Context, posterPath string) ([]byte, error)
}

// cache wraps an optional Redis client with nil-safe helpers; when Redis is
// unavailable every lookup is a miss and every write a no-op.
type cache struct {
	rdb *redis.Client
}

func (c cache) get(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c cache) set(ctx context.Context, key, value string, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Error("failed to set cache", "key", key, "error", err)
	}
}

func (c cache) invalidate(ctx context.Context, pattern string) {
	if c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
}
