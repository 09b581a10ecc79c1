package service

import (
	"context"
	"errors"
	"fmt"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
)

// movieResolver resolves a movie id into the local catalog before any
// activity row can reference it (implemented by CatalogService).
type movieResolver interface {
	Resolve(ctx context.Context, id int64) (*models.Movie, error)
}

// ActivityService manages the per-(user, movie) interaction rows: ratings,
// watched/favorite/watch-later flags, reviews and the derived listings.
type ActivityService struct {
	activities activityStore
	resolver   movieResolver
	imageBase  string
}

// NewActivityService creates an ActivityService.
func NewActivityService(activities activityStore, resolver movieResolver, imageBase string) *ActivityService {
	return &ActivityService{activities: activities, resolver: resolver, imageBase: imageBase}
}

// Rate sets the user's rating for a movie, resolving it into the catalog
// first. The second return reports whether the activity row was created by
// this call.
func (s *ActivityService) Rate(ctx context.Context, userID, movieID int64, rating int) (*models.UserActivity, bool, error) {
	if rating < 0 || rating > 10 {
		return nil, false, apperrors.Validation("rating", "must be between 0 and 10")
	}
	return s.apply(ctx, userID, movieID, models.ActivityPatch{Rating: &rating})
}

// ClearRating removes the rating from an existing activity row. The row and
// its other fields survive.
func (s *ActivityService) ClearRating(ctx context.Context, userID, movieID int64) error {
	return s.activities.ClearField(ctx, userID, movieID, "rating")
}

// SetFlag turns on one of the watched/favorite/watch_later flags.
func (s *ActivityService) SetFlag(ctx context.Context, userID, movieID int64, flag string) (*models.UserActivity, bool, error) {
	patch, err := flagPatch(flag)
	if err != nil {
		return nil, false, err
	}
	return s.apply(ctx, userID, movieID, patch)
}

// UnsetFlag turns off a flag that is currently set; it is not-found when the
// row is missing or the flag is already off.
func (s *ActivityService) UnsetFlag(ctx context.Context, userID, movieID int64, flag string) error {
	if _, err := flagPatch(flag); err != nil {
		return err
	}
	return s.activities.UnsetFlag(ctx, userID, movieID, flag)
}

// Review attaches or replaces the user's review text for a movie.
func (s *ActivityService) Review(ctx context.Context, userID, movieID int64, review string) (*models.UserActivity, bool, error) {
	if review == "" {
		return nil, false, apperrors.Validation("review", "must not be empty")
	}
	return s.apply(ctx, userID, movieID, models.ActivityPatch{Review: &review})
}

// DeleteReview removes the review text from an existing activity row.
func (s *ActivityService) DeleteReview(ctx context.Context, userID, movieID int64) error {
	return s.activities.ClearField(ctx, userID, movieID, "review")
}

// apply resolves the movie, then upserts the patch. Existence is checked up
// front so handlers can distinguish created from updated; a concurrent first
// write between the check and the upsert merges safely and only skews that
// flag.
func (s *ActivityService) apply(ctx context.Context, userID, movieID int64, patch models.ActivityPatch) (*models.UserActivity, bool, error) {
	if _, err := s.resolver.Resolve(ctx, movieID); err != nil {
		return nil, false, fmt.Errorf("resolve movie %d: %w", movieID, err)
	}

	created := false
	if _, err := s.activities.Get(ctx, userID, movieID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, err
		}
		created = true
	}

	activity, err := s.activities.Upsert(ctx, userID, movieID, patch)
	if err != nil {
		return nil, false, err
	}
	return activity, created, nil
}

// Watchlist returns the user's watch-later movies, most recent first.
func (s *ActivityService) Watchlist(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	rows, err := s.activities.ListByFlag(ctx, userID, "watch_later")
	if err != nil {
		return nil, err
	}
	return s.summaries(rows), nil
}

// Favorites returns the user's favorited movies, most recent first.
func (s *ActivityService) Favorites(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	rows, err := s.activities.ListByFlag(ctx, userID, "favorite")
	if err != nil {
		return nil, err
	}
	return s.summaries(rows), nil
}

// Watched returns the movies the user has marked watched.
func (s *ActivityService) Watched(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	rows, err := s.activities.ListByFlag(ctx, userID, "watched")
	if err != nil {
		return nil, err
	}
	return s.summaries(rows), nil
}

// Rated returns the movies the user has rated.
func (s *ActivityService) Rated(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	rows, err := s.activities.ListRated(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summaries(rows), nil
}

// History returns every interaction row, labelled by its dominant kind.
func (s *ActivityService) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	rows, err := s.activities.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]models.HistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, models.HistoryEntry{
			MovieSummary: s.summary(&rows[i]),
			Kind:         activityKind(&rows[i].Activity),
		})
	}
	return entries, nil
}

// Reviews returns all reviews written for a movie.
func (s *ActivityService) Reviews(ctx context.Context, movieID int64) ([]models.ReviewEntry, error) {
	return s.activities.Reviews(ctx, movieID)
}

func (s *ActivityService) summaries(rows []models.ActivityMovie) []models.MovieSummary {
	out := make([]models.MovieSummary, 0, len(rows))
	for i := range rows {
		out = append(out, s.summary(&rows[i]))
	}
	return out
}

func (s *ActivityService) summary(row *models.ActivityMovie) models.MovieSummary {
	m := &row.Movie
	a := &row.Activity
	return models.MovieSummary{
		ID:         m.ID,
		Title:      m.Title,
		Overview:   m.Overview,
		Rating:     m.Rating,
		PosterURL:  m.PosterURL(s.imageBase),
		Genres:     m.Genres,
		Source:     models.SourceLocal,
		UserRating: a.Rating,
		Favorite:   a.Favorite,
		Watched:    a.Watched,
		WatchLater: a.WatchLater,
	}
}

// activityKind labels an interaction row by its strongest signal.
func activityKind(a *models.UserActivity) string {
	switch {
	case a.Rating != nil:
		return "rating"
	case a.Watched:
		return "watched"
	case a.Favorite:
		return "favorite"
	case a.WatchLater:
		return "watch_later"
	default:
		return "activity"
	}
}

func flagPatch(flag string) (models.ActivityPatch, error) {
	on := true
	switch flag {
	case "watched":
		return models.ActivityPatch{Watched: &on}, nil
	case "favorite":
		return models.ActivityPatch{Favorite: &on}, nil
	case "watch_later":
		return models.ActivityPatch{WatchLater: &on}, nil
	default:
		return models.ActivityPatch{}, apperrors.Validation("flag", "unknown activity flag")
	}
}
