package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"cinelog-api/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(512) NOT NULL,
			email VARCHAR(512) UNIQUE NOT NULL,
			password_hash VARCHAR(512) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS genres (
			name VARCHAR(512) PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		)`,
		// Movies are keyed directly by the TMDB id; there is no internal
		// id space.
		`CREATE TABLE IF NOT EXISTS movies (
			id BIGINT PRIMARY KEY,
			title VARCHAR(512) NOT NULL,
			overview TEXT NOT NULL DEFAULT '',
			release_year INTEGER CHECK (release_year IS NULL OR release_year BETWEEN 1800 AND 2100),
			tmdb_rating DOUBLE PRECISION CHECK (tmdb_rating IS NULL OR tmdb_rating BETWEEN 0 AND 10),
			poster_path VARCHAR(512) NOT NULL DEFAULT '',
			poster BYTEA NOT NULL DEFAULT ''::bytea,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS movie_genres (
			movie_id BIGINT REFERENCES movies(id) ON DELETE CASCADE,
			genre_name VARCHAR(512) REFERENCES genres(name) ON DELETE CASCADE,
			PRIMARY KEY (movie_id, genre_name)
		)`,
		// One row per (user, movie); rows are upserted and never deleted.
		`CREATE TABLE IF NOT EXISTS user_activities (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
			rating SMALLINT CHECK (rating IS NULL OR rating BETWEEN 0 AND 10),
			watched BOOLEAN NOT NULL DEFAULT FALSE,
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			watch_later BOOLEAN NOT NULL DEFAULT FALSE,
			review TEXT,
			watched_at TIMESTAMPTZ,
			favorited_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, movie_id)
		)`,
		// Indexes for common query patterns
		`CREATE INDEX IF NOT EXISTS idx_movie_genres_genre ON movie_genres(genre_name)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON user_activities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_rated ON user_activities(user_id) WHERE rating IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_movies_rating ON movies(tmdb_rating)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
