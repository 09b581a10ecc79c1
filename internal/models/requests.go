package models

// RegisterRequest is the request body for account creation.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=512"`
	Email    string `json:"email" validate:"required,email,max=512"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token to exchange for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest is a partial profile update; nil fields are kept.
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=512"`
	Email    *string `json:"email" validate:"omitempty,email,max=512"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// RateRequest is the request body for rating a movie.
type RateRequest struct {
	Rating int `json:"rating" validate:"min=0,max=10"`
}

// ReviewRequest is the request body for reviewing a movie.
type ReviewRequest struct {
	Review string `json:"review" validate:"required,max=10000"`
}

// AuthTokens is the login/refresh response.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CatalogParams holds query parameters for catalog listing.
type CatalogParams struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// Validate clamps paging parameters to sane defaults.
func (p *CatalogParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

// MovieSummary is the catalog/list response shape for one movie.
type MovieSummary struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Overview  string   `json:"overview"`
	Rating    *float64 `json:"tmdb_rating"`
	PosterURL string   `json:"poster_url"`
	Genres    []string `json:"genres"`
	Source    string   `json:"source,omitempty"`

	// Per-user overlay, zero-valued for anonymous requests.
	UserRating *int `json:"user_rating"`
	Favorite   bool `json:"favorite"`
	Watched    bool `json:"watched"`
	WatchLater bool `json:"watch_later"`
}

// CatalogPage is the paginated catalog response.
type CatalogPage struct {
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Data         []MovieSummary `json:"data"`
}

// MovieDetailResponse is the cache-or-fetch detail response with the
// requesting user's overlay.
type MovieDetailResponse struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Overview   string   `json:"overview"`
	Year       *int     `json:"year,omitempty"`
	Genres     []string `json:"genres"`
	Rating     *float64 `json:"tmdb_rating"`
	PosterURL  string   `json:"poster_url"`
	UserRating *int     `json:"user_rating"`
	Favorite   bool     `json:"favorite"`
	Watched    bool     `json:"watched"`
	WatchLater bool     `json:"watch_later"`
	Source     string   `json:"source"`
}

// Recommendation sources.
const (
	SourceLocal    = "local"
	SourceProvider = "provider"
)

// RecommendationItem is one entry of the composed recommendation list.
type RecommendationItem struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Overview  string   `json:"overview,omitempty"`
	Rating    *float64 `json:"tmdb_rating"`
	PosterURL string   `json:"poster_url"`
	Genres    []string `json:"genres"`
	Source    string   `json:"source"`
	Reason    string   `json:"reason"`
}

// RecommendationResponse wraps the recommendation list together with the raw
// affinity weights for explainability.
type RecommendationResponse struct {
	Total           int                  `json:"total"`
	Recommendations []RecommendationItem `json:"recommendations"`
	Weights         map[string]float64   `json:"weights"`
	Message         string               `json:"message,omitempty"`
}

// ReviewEntry is one public review of a movie.
type ReviewEntry struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Review   string `json:"review"`
}

// HistoryEntry is one activity row labelled with its dominant kind.
type HistoryEntry struct {
	MovieSummary
	Kind string `json:"kind"`
}
