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

// MovieRepository handles database operations for movies and genres.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `m.id, m.title, m.overview, m.release_year, m.tmdb_rating, m.poster_path,
	COALESCE(ARRAY_AGG(mg.genre_name ORDER BY mg.genre_name) FILTER (WHERE mg.genre_name IS NOT NULL), '{}')`

// GetByID returns a movie with its genres, or apperrors.ErrNotFound.
func (r *MovieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM movies m
		LEFT JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE m.id = $1
		GROUP BY m.id
	`, movieColumns), id)

	m, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("movie %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return m, nil
}

// Upsert persists a movie and its genre associations as a single logical
// unit. Existing rows are overwritten field-by-field, except that stored
// poster bytes are kept when the incoming record carries none. Genres are
// get-or-created by name and linked idempotently.
func (r *MovieRepository) Upsert(ctx context.Context, m *models.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	poster := m.Poster
	if poster == nil {
		poster = []byte{}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO movies (id, title, overview, release_year, tmdb_rating, poster_path, poster, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			overview = EXCLUDED.overview,
			release_year = EXCLUDED.release_year,
			tmdb_rating = EXCLUDED.tmdb_rating,
			poster_path = EXCLUDED.poster_path,
			poster = CASE WHEN LENGTH(EXCLUDED.poster) > 0 THEN EXCLUDED.poster ELSE movies.poster END,
			updated_at = NOW()
	`, m.ID, m.Title, m.Overview, m.Year, m.Rating, m.PosterPath, poster)
	if err != nil {
		return fmt.Errorf("upsert movie %d: %w", m.ID, err)
	}

	for _, name := range m.Genres {
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO genres (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO movie_genres (movie_id, genre_name) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, m.ID, name); err != nil {
			return fmt.Errorf("link genre %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// List returns a page of the local catalog ordered by id.
func (r *MovieRepository) List(ctx context.Context, params models.CatalogParams) ([]models.Movie, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM movies m
		LEFT JOIN movie_genres mg ON mg.movie_id = m.id
		GROUP BY m.id
		ORDER BY m.id
		LIMIT $1 OFFSET $2
	`, movieColumns), params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// ByGenres returns distinct local movies tagged with any of the given genre
// names, ordered by id.
func (r *MovieRepository) ByGenres(ctx context.Context, names []string) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE m.id IN (SELECT movie_id FROM movie_genres WHERE genre_name = ANY($1))
		GROUP BY m.id
		ORDER BY m.id
	`, movieColumns), pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("movies by genres: %w", err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// ByRatingRange returns local movies whose provider rating falls in
// [min, max], ordered by id.
func (r *MovieRepository) ByRatingRange(ctx context.Context, min, max float64) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM movies m
		LEFT JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE m.tmdb_rating BETWEEN $1 AND $2
		GROUP BY m.id
		ORDER BY m.id
	`, movieColumns), min, max)
	if err != nil {
		return nil, fmt.Errorf("movies by rating: %w", err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// Candidates returns up to limit movies tagged with any of the given genres,
// excluding movies the user has already rated. The ascending-id order is the
// stable input order for the composer's ranking tie-break.
func (r *MovieRepository) Candidates(ctx context.Context, genres []string, excludeUserID int64, limit int) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE m.id IN (SELECT movie_id FROM movie_genres WHERE genre_name = ANY($1))
		  AND NOT EXISTS (
			SELECT 1 FROM user_activities a
			WHERE a.user_id = $2 AND a.movie_id = m.id AND a.rating IS NOT NULL
		  )
		GROUP BY m.id
		ORDER BY m.id
		LIMIT $3
	`, movieColumns), pq.Array(genres), excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("candidate movies: %w", err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	var m models.Movie
	if err := row.Scan(&m.ID, &m.Title, &m.Overview, &m.Year, &m.Rating,
		&m.PosterPath, pq.Array(&m.Genres)); err != nil {
		return nil, err
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	return &m, nil
}

func scanMovies(rows *sql.Rows) ([]models.Movie, error) {
	movies := make([]models.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie row: %w", err)
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}
