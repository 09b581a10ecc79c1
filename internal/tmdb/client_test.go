package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/config"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.TMDBConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		ImageBase: srv.URL,
		Timeout:   2 * time.Second,
	})
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 550, "title": "Fight Club", "overview": "Insomnia.",
			"release_date": "1999-10-15", "vote_average": 8.4,
			"poster_path": "/fc.jpg",
			"genres": [{"id": 18, "name": "Drama"}]
		}`))
	}))
	defer srv.Close()

	details, err := newTestClient(srv).FetchByID(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, int64(550), details.ID)
	assert.Equal(t, "Fight Club", details.Title)
	require.NotNil(t, details.Year())
	assert.Equal(t, 1999, *details.Year())
	require.Len(t, details.Genres, 1)
	assert.Equal(t, "Drama", details.Genres[0].Name)
}

func TestFetchByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message": "not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFetchByIDMissingTitleIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 550}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), 550)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFetchByIDRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), 550)
	ue, ok := apperrors.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.UpstreamRateLimited, ue.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
}

func TestFetchByIDAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), 550)
	ue, ok := apperrors.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.UpstreamAuth, ue.Kind)
}

func TestFetchByIDTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(config.TMDBConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	_, err := client.FetchByID(context.Background(), 550)
	ue, ok := apperrors.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.UpstreamTimeout, ue.Kind)
}

func TestFetchByIDMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": `))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), 550)
	ue, ok := apperrors.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.UpstreamMalformed, ue.Kind)
}

func TestTrending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/movie/week", r.URL.Path)
		_, _ = w.Write([]byte(`{"results": [
			{"id": 1, "title": "One", "genre_ids": [18, 35]},
			{"id": 2, "title": "Two", "genre_ids": []}
		]}`))
	}))
	defer srv.Close()

	movies, err := newTestClient(srv).Trending(context.Background(), "week")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, []int{18, 35}, movies[0].GenreIDs)
}

func TestTrendingRejectsBadPeriod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Trending(context.Background(), "month")
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDiscoverParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "18,35", q.Get("with_genres"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "6.5", q.Get("vote_average.gte"))
		assert.Equal(t, "8", q.Get("vote_average.lte"))
		_, _ = w.Write([]byte(`{"page": 2, "results": [], "total_pages": 5, "total_results": 100}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv).Discover(context.Background(), DiscoverParams{
		GenreIDs:  []int{18, 35},
		Page:      2,
		VoteGTE:   6.5,
		VoteLTE:   8,
		HasVoteLT: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 5, page.TotalPages)
}

func TestGenreList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genre/movie/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"genres": [{"id": 18, "name": "Drama"}, {"id": 35, "name": "Comedy"}]}`))
	}))
	defer srv.Close()

	genres, err := newTestClient(srv).GenreList(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Drama", genres[0].Name)
}

func TestDownloadPoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fc.jpg", r.URL.Path)
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer srv.Close()

	data, err := newTestClient(srv).DownloadPoster(context.Background(), "/fc.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}

func TestMovieDetailsYear(t *testing.T) {
	testCases := []struct {
		name     string
		date     string
		expected *int
	}{
		{name: "valid", date: "1999-10-15", expected: intPtr(1999)},
		{name: "empty", date: "", expected: nil},
		{name: "too short", date: "99", expected: nil},
		{name: "out of range", date: "0001-01-01", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := MovieDetails{ReleaseDate: tc.date}
			got := d.Year()
			if tc.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tc.expected, *got)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
