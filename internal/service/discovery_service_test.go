package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

func newDiscoveryFixture() (*DiscoveryService, *fakeMovieStore, *fakeActivityStore, *fakeProvider) {
	movies := newFakeMovieStore()
	activities := newFakeActivityStore()
	provider := newFakeProvider()
	svc := NewDiscoveryService(movies, activities, provider, nil, "https://img.test/w500")
	return svc, movies, activities, provider
}

func TestByRatingRejectsBadRange(t *testing.T) {
	svc, _, _, _ := newDiscoveryFixture()

	testCases := []struct {
		name string
		min  float64
		max  float64
	}{
		{name: "negative min", min: -1, max: 5},
		{name: "max above ten", min: 0, max: 10.5},
		{name: "min above max", min: 8, max: 7},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ByRating(context.Background(), tc.min, tc.max, nil)
			var ve *apperrors.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestByRatingTopsUpFromProvider(t *testing.T) {
	svc, movies, _, provider := newDiscoveryFixture()

	local := 7.5
	movies.movies[1] = &models.Movie{ID: 1, Title: "Local", Rating: &local}
	provider.genres = []tmdb.Genre{{ID: 18, Name: "Drama"}}
	provider.page = &tmdb.Page{Results: []tmdb.Movie{
		{ID: 2, Title: "Remote", VoteAverage: 7.0, GenreIDs: []int{18}},
		{ID: 1, Title: "Local Dupe", VoteAverage: 7.5},
		{ID: 0, Title: "No ID"},
	}}

	result, err := svc.ByRating(context.Background(), 6, 8, nil)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, models.SourceLocal, result[0].Source)
	assert.Equal(t, models.SourceProvider, result[1].Source)
	assert.Equal(t, int64(2), result[1].ID)

	// The new provider entry was persisted.
	assert.Contains(t, movies.movies, int64(2))
}

func TestByGenresUnknownIDs(t *testing.T) {
	svc, _, _, provider := newDiscoveryFixture()
	provider.genres = []tmdb.Genre{{ID: 18, Name: "Drama"}}

	_, err := svc.ByGenres(context.Background(), []int{999}, nil)
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestByGenresMergesLocalAndProvider(t *testing.T) {
	svc, movies, _, provider := newDiscoveryFixture()

	movies.movies[1] = &models.Movie{ID: 1, Title: "Local Drama", Genres: []string{"Drama"}}
	provider.genres = []tmdb.Genre{{ID: 18, Name: "Drama"}}
	provider.page = &tmdb.Page{Results: []tmdb.Movie{
		{ID: 2, Title: "Remote Drama", GenreIDs: []int{18}},
		{ID: 1, Title: "Already Local", GenreIDs: []int{18}},
	}}

	result, err := svc.ByGenres(context.Background(), []int{18}, nil)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(1), result[0].ID)
	assert.Equal(t, int64(2), result[1].ID)
}

func TestTrendingSkipsMissingDetails(t *testing.T) {
	svc, _, _, provider := newDiscoveryFixture()

	provider.trending = []tmdb.Movie{
		{ID: 1, Title: "Known"},
		{ID: 2, Title: "Vanished"},
	}
	provider.details[1] = &tmdb.MovieDetails{ID: 1, Title: "Known", VoteAverage: 7.2}

	result, err := svc.Trending(context.Background(), "week")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(1), result[0].ID)
	require.NotNil(t, result[0].Rating)
	assert.InDelta(t, 7.2, *result[0].Rating, 0.001)
}

func TestSearchSkipsEntriesWithoutTitle(t *testing.T) {
	svc, _, _, provider := newDiscoveryFixture()

	provider.genres = []tmdb.Genre{{ID: 18, Name: "Drama"}}
	provider.page = &tmdb.Page{
		Page:         1,
		TotalPages:   1,
		TotalResults: 2,
		Results: []tmdb.Movie{
			{ID: 1, Title: "Kept", GenreIDs: []int{18}},
			{ID: 2, Title: ""},
		},
	}

	result, err := svc.Search(context.Background(), "kept", 1)
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, []string{"Drama"}, result.Data[0].Genres)
}
