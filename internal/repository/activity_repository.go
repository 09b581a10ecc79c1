package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
)

// ActivityRepository handles the per-(user, movie) interaction rows.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `a.id, a.user_id, a.movie_id, a.rating, a.watched, a.favorite,
	a.watch_later, a.review, a.watched_at, a.favorited_at, a.created_at, a.updated_at`

// Get returns the activity row for (user, movie), or apperrors.ErrNotFound.
func (r *ActivityRepository) Get(ctx context.Context, userID, movieID int64) (*models.UserActivity, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM user_activities a WHERE a.user_id = $1 AND a.movie_id = $2
	`, activityColumns), userID, movieID)

	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("activity for user %d movie %d: %w", userID, movieID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// Upsert creates the (user, movie) row if absent, otherwise merges only the
// fields set in the patch. The watched-at / favorited-at timestamps are set
// on the first transition to true and never overwritten afterwards.
func (r *ActivityRepository) Upsert(ctx context.Context, userID, movieID int64, patch models.ActivityPatch) (*models.UserActivity, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_activities
			(user_id, movie_id, rating, watched, favorite, watch_later, review, watched_at, favorited_at)
		VALUES ($1, $2, $3,
			COALESCE($4, FALSE), COALESCE($5, FALSE), COALESCE($6, FALSE), $7,
			CASE WHEN $4 IS TRUE THEN NOW() END,
			CASE WHEN $5 IS TRUE THEN NOW() END)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating = COALESCE($3, user_activities.rating),
			watched = COALESCE($4, user_activities.watched),
			favorite = COALESCE($5, user_activities.favorite),
			watch_later = COALESCE($6, user_activities.watch_later),
			review = COALESCE($7, user_activities.review),
			watched_at = CASE
				WHEN $4 IS TRUE AND user_activities.watched_at IS NULL THEN NOW()
				ELSE user_activities.watched_at
			END,
			favorited_at = CASE
				WHEN $5 IS TRUE AND user_activities.favorited_at IS NULL THEN NOW()
				ELSE user_activities.favorited_at
			END,
			updated_at = NOW()
		RETURNING id, user_id, movie_id, rating, watched, favorite, watch_later,
			review, watched_at, favorited_at, created_at, updated_at
	`, userID, movieID, patch.Rating, patch.Watched, patch.Favorite, patch.WatchLater, patch.Review)

	a, err := scanActivity(row)
	if err != nil {
		return nil, fmt.Errorf("upsert activity: %w", err)
	}
	return a, nil
}

// ClearField nulls a clearable column (rating or review) on an existing row;
// the row itself persists. Returns apperrors.ErrNotFound when no row exists.
func (r *ActivityRepository) ClearField(ctx context.Context, userID, movieID int64, field string) error {
	column, ok := map[string]string{"rating": "rating", "review": "review"}[field]
	if !ok {
		return fmt.Errorf("unclearable field %q", field)
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE user_activities SET %s = NULL, updated_at = NOW()
		WHERE user_id = $1 AND movie_id = $2 AND %s IS NOT NULL
	`, column, column), userID, movieID)
	if err != nil {
		return fmt.Errorf("clear %s: %w", field, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("clear %s for movie %d: %w", field, movieID, apperrors.ErrNotFound)
	}
	return nil
}

// UnsetFlag sets a boolean flag to false on an existing row, keeping the row
// and its first-transition timestamp. Returns apperrors.ErrNotFound when the
// row does not exist or the flag was not set.
func (r *ActivityRepository) UnsetFlag(ctx context.Context, userID, movieID int64, flag string) error {
	column, ok := flagColumn(flag)
	if !ok {
		return fmt.Errorf("unknown flag %q", flag)
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE user_activities SET %s = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND movie_id = $2 AND %s = TRUE
	`, column, column), userID, movieID)
	if err != nil {
		return fmt.Errorf("unset %s: %w", flag, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unset %s for movie %d: %w", flag, movieID, apperrors.ErrNotFound)
	}
	return nil
}

// ListByFlag returns the user's activity rows with the given flag set,
// newest first, joined with their movies.
func (r *ActivityRepository) ListByFlag(ctx context.Context, userID int64, flag string) ([]models.ActivityMovie, error) {
	column, ok := flagColumn(flag)
	if !ok {
		return nil, fmt.Errorf("unknown flag %q", flag)
	}
	return r.listJoined(ctx, fmt.Sprintf("a.user_id = $1 AND a.%s = TRUE", column), userID)
}

// ListRated returns the user's rated movies, newest first.
func (r *ActivityRepository) ListRated(ctx context.Context, userID int64) ([]models.ActivityMovie, error) {
	return r.listJoined(ctx, "a.user_id = $1 AND a.rating IS NOT NULL", userID)
}

// History returns every activity row for the user, newest first.
func (r *ActivityRepository) History(ctx context.Context, userID int64) ([]models.ActivityMovie, error) {
	return r.listJoined(ctx, "a.user_id = $1", userID)
}

func (r *ActivityRepository) listJoined(ctx context.Context, where string, args ...any) ([]models.ActivityMovie, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s,
			m.id, m.title, m.overview, m.release_year, m.tmdb_rating, m.poster_path,
			COALESCE(ARRAY_AGG(mg.genre_name ORDER BY mg.genre_name) FILTER (WHERE mg.genre_name IS NOT NULL), '{}')
		FROM user_activities a
		JOIN movies m ON m.id = a.movie_id
		LEFT JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE %s
		GROUP BY a.id, m.id
		ORDER BY a.updated_at DESC, a.id DESC
	`, activityColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	result := make([]models.ActivityMovie, 0)
	for rows.Next() {
		var am models.ActivityMovie
		a := &am.Activity
		m := &am.Movie
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.MovieID, &a.Rating, &a.Watched, &a.Favorite,
			&a.WatchLater, &a.Review, &a.WatchedAt, &a.FavoritedAt, &a.CreatedAt, &a.UpdatedAt,
			&m.ID, &m.Title, &m.Overview, &m.Year, &m.Rating, &m.PosterPath,
			pq.Array(&m.Genres),
		); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		if m.Genres == nil {
			m.Genres = []string{}
		}
		result = append(result, am)
	}
	return result, rows.Err()
}

// Reviews returns all reviews for a movie, newest first.
func (r *ActivityRepository) Reviews(ctx context.Context, movieID int64) ([]models.ReviewEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, a.review
		FROM user_activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.movie_id = $1 AND a.review IS NOT NULL
		ORDER BY a.updated_at DESC
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.ReviewEntry, 0)
	for rows.Next() {
		var entry models.ReviewEntry
		if err := rows.Scan(&entry.UserID, &entry.UserName, &entry.Review); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, entry)
	}
	return reviews, rows.Err()
}

// GenreStats aggregates the user's strongly-positive ratings (strictly
// above the threshold) per genre: qualifying count and mean rating.
func (r *ActivityRepository) GenreStats(ctx context.Context, userID int64, threshold float64) ([]models.GenreStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mg.genre_name, COUNT(*), AVG(a.rating)
		FROM user_activities a
		JOIN movie_genres mg ON mg.movie_id = a.movie_id
		WHERE a.user_id = $1 AND a.rating IS NOT NULL AND a.rating > $2
		GROUP BY mg.genre_name
		ORDER BY mg.genre_name
	`, userID, threshold)
	if err != nil {
		return nil, fmt.Errorf("genre stats: %w", err)
	}
	defer rows.Close()

	stats := make([]models.GenreStat, 0)
	for rows.Next() {
		var s models.GenreStat
		if err := rows.Scan(&s.Genre, &s.Count, &s.AvgRating); err != nil {
			return nil, fmt.Errorf("scan genre stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// InterestGenres returns the distinct genre names touched by the user's
// ratings at or above the threshold, sorted by name.
func (r *ActivityRepository) InterestGenres(ctx context.Context, userID int64, threshold float64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT mg.genre_name
		FROM user_activities a
		JOIN movie_genres mg ON mg.movie_id = a.movie_id
		WHERE a.user_id = $1 AND a.rating IS NOT NULL AND a.rating >= $2
		ORDER BY mg.genre_name
	`, userID, threshold)
	if err != nil {
		return nil, fmt.Errorf("interest genres: %w", err)
	}
	defer rows.Close()

	genres := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan interest genre: %w", err)
		}
		genres = append(genres, name)
	}
	return genres, rows.Err()
}

// RatedMovieIDs returns the set of movie ids the user has rated.
func (r *ActivityRepository) RatedMovieIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT movie_id FROM user_activities WHERE user_id = $1 AND rating IS NOT NULL
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("rated movie ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rated id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func flagColumn(flag string) (string, bool) {
	// Validated switch keeps user input out of the SQL text.
	switch flag {
	case "watched":
		return "watched", true
	case "favorite":
		return "favorite", true
	case "watch_later":
		return "watch_later", true
	}
	return "", false
}

func scanActivity(row rowScanner) (*models.UserActivity, error) {
	var a models.UserActivity
	if err := row.Scan(&a.ID, &a.UserID, &a.MovieID, &a.Rating, &a.Watched,
		&a.Favorite, &a.WatchLater, &a.Review, &a.WatchedAt, &a.FavoritedAt,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
