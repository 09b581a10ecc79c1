package models

import "time"

// Movie is a catalog entry. The primary key is the TMDB id; no internal id
// space exists, so cached rows and provider payloads share one identifier.
type Movie struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Overview   string    `json:"overview"`
	Year       *int      `json:"year,omitempty"`
	Rating     *float64  `json:"tmdb_rating"`
	PosterPath string    `json:"-"`
	Poster     []byte    `json:"-"`
	Genres     []string  `json:"genres"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// PosterURL returns the public image URL for the movie, or "" without a
// poster path.
func (m *Movie) PosterURL(imageBase string) string {
	if m.PosterPath == "" {
		return ""
	}
	return imageBase + m.PosterPath
}

// Genre is a tag shared across movies, keyed by its human-readable name.
type Genre struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User is a registered account. Only the id is referenced by the
// recommendation core; the rest backs the auth endpoints.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// UserActivity is the single interaction row per (user, movie). It is
// upserted on every interaction and never deleted; clearing a flag or the
// rating keeps the row and the other fields.
type UserActivity struct {
	ID          int64      `json:"-"`
	UserID      int64      `json:"user_id"`
	MovieID     int64      `json:"movie_id"`
	Rating      *int       `json:"rating"`
	Watched     bool       `json:"watched"`
	Favorite    bool       `json:"favorite"`
	WatchLater  bool       `json:"watch_later"`
	Review      *string    `json:"review,omitempty"`
	WatchedAt   *time.Time `json:"watched_at,omitempty"`
	FavoritedAt *time.Time `json:"favorited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ActivityPatch is a partial update for a UserActivity row. Nil fields are
// left untouched by the upsert; set fields replace the stored value.
type ActivityPatch struct {
	Rating     *int
	Watched    *bool
	Favorite   *bool
	WatchLater *bool
	Review     *string
}

// ActivityMovie is an activity row joined with its movie, used by the
// per-user listing queries.
type ActivityMovie struct {
	Activity UserActivity
	Movie    Movie
}

// GenreStat is one aggregation row feeding the affinity scorer: how many
// qualifying ratings touch the genre and their mean.
type GenreStat struct {
	Genre     string
	Count     int
	AvgRating float64
}
