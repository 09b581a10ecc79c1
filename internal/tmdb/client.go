// Package tmdb implements the metadata-provider client. All calls are
// bounded by the configured timeout, outcomes are classified into the
// apperrors upstream taxonomy, and a circuit breaker sheds load when the
// provider is unhealthy.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/config"
)

// Client is the TMDB API client. The API key is injected at construction;
// nothing reads ambient process state.
type Client struct {
	apiKey    string
	baseURL   string
	imageBase string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new TMDB API client.
func NewClient(cfg config.TMDBConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A 4xx other than 429 means the provider answered; only transport
		// failures, timeouts, rate limiting and 5xx count against the circuit.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if ue, ok := apperrors.AsUpstream(err); ok {
				return ue.Status >= 400 && ue.Status < 500 && ue.Kind != apperrors.UpstreamRateLimited
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("tmdb circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		imageBase: strings.TrimRight(cfg.ImageBase, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// Gentle client-side pacing so bulk syncs do not hammer the provider.
		limiter: rate.NewLimiter(rate.Limit(20), 10),
		breaker: breaker,
	}
}

// ---- Provider response types ----

// Movie is a movie as it appears in paginated results (genre ids only).
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
}

// MovieDetails is the fetch-by-id payload (full genre objects).
type MovieDetails struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []Genre `json:"genres"`
}

// Year parses the release year out of the provider date, nil when absent.
func (d *MovieDetails) Year() *int {
	if len(d.ReleaseDate) < 4 {
		return nil
	}
	y, err := strconv.Atoi(d.ReleaseDate[:4])
	if err != nil || y < 1800 || y > 2100 {
		return nil
	}
	return &y
}

// Genre is a provider genre (id + canonical name).
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Page is the shared shape of search/discover results.
type Page struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type genreListResponse struct {
	Genres []Genre `json:"genres"`
}

type trendingResponse struct {
	Results []Movie `json:"results"`
}

// DiscoverParams narrows a discover call. Zero values are omitted.
type DiscoverParams struct {
	GenreIDs  []int
	Page      int
	SortBy    string
	VoteGTE   float64
	VoteLTE   float64
	HasVoteLT bool
}

// ---- Client operations ----

// FetchByID fetches full movie details. A provider 404 or a payload missing
// id/title is reported as apperrors.ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id int64) (*MovieDetails, error) {
	body, err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil)
	if err != nil {
		if ue, ok := apperrors.AsUpstream(err); ok && ue.Status == http.StatusNotFound {
			return nil, fmt.Errorf("movie %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}

	var details MovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamMalformed, 0, err)
	}
	// Payloads without id/title signal "no such movie" even on HTTP 200.
	if details.ID == 0 || details.Title == "" {
		return nil, fmt.Errorf("movie %d: %w", id, apperrors.ErrNotFound)
	}
	return &details, nil
}

// Search queries movies by title.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("language", "en-US")

	body, err := c.get(ctx, "/search/movie", params)
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// Discover lists movies matching the given filters, most popular first
// unless SortBy overrides it.
func (c *Client) Discover(ctx context.Context, p DiscoverParams) (*Page, error) {
	params := url.Values{}
	if len(p.GenreIDs) > 0 {
		ids := make([]string, len(p.GenreIDs))
		for i, id := range p.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	params.Set("language", "en-US")
	if p.VoteGTE > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(p.VoteGTE, 'f', -1, 64))
	}
	if p.HasVoteLT {
		params.Set("vote_average.lte", strconv.FormatFloat(p.VoteLTE, 'f', -1, 64))
	}

	body, err := c.get(ctx, "/discover/movie", params)
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// Trending returns the trending list for "day" or "week".
func (c *Client) Trending(ctx context.Context, period string) ([]Movie, error) {
	if period != "day" && period != "week" {
		return nil, apperrors.Validation("period", "must be 'day' or 'week'")
	}

	body, err := c.get(ctx, "/trending/movie/"+period, nil)
	if err != nil {
		return nil, err
	}

	var resp trendingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamMalformed, 0, err)
	}
	return resp.Results, nil
}

// GenreList returns the canonical genre id-to-name table.
func (c *Client) GenreList(ctx context.Context) ([]Genre, error) {
	params := url.Values{}
	params.Set("language", "en-US")

	body, err := c.get(ctx, "/genre/movie/list", params)
	if err != nil {
		return nil, err
	}

	var resp genreListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamMalformed, 0, err)
	}
	return resp.Genres, nil
}

// DownloadPoster fetches the poster image bytes for a poster path. Callers
// absorb failures; a missing poster must never abort a resolution.
func (c *Client) DownloadPoster(ctx context.Context, posterPath string) ([]byte, error) {
	if posterPath == "" {
		return nil, fmt.Errorf("empty poster path")
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.imageBase+posterPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poster download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poster download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ---- Transport ----

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamTimeout, 0, err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doGet(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Upstream(apperrors.UpstreamUnavailable, 0, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) doGet(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamConnection, 0, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("tmdb: %s", strings.TrimSpace(string(snippet)))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, apperrors.Upstream(apperrors.UpstreamRateLimited, resp.StatusCode, statusErr)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, apperrors.Upstream(apperrors.UpstreamAuth, resp.StatusCode, statusErr)
		default:
			return nil, apperrors.Upstream(apperrors.UpstreamStatus, resp.StatusCode, statusErr)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamConnection, 0, err)
	}
	return body, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Upstream(apperrors.UpstreamTimeout, 0, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return apperrors.Upstream(apperrors.UpstreamTimeout, 0, err)
	}
	return apperrors.Upstream(apperrors.UpstreamConnection, 0, err)
}

func decodePage(body []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.Upstream(apperrors.UpstreamMalformed, 0, err)
	}
	if page.Results == nil {
		page.Results = []Movie{}
	}
	return &page, nil
}
