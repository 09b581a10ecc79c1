package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
)

func newActivityFixture() (*ActivityService, *fakeActivityStore, *fakeResolver) {
	activities := newFakeActivityStore()
	resolver := &fakeResolver{known: map[int64]*models.Movie{
		550: {ID: 550, Title: "Fight Club"},
	}}
	svc := NewActivityService(activities, resolver, "https://img.test/w500")
	return svc, activities, resolver
}

func TestRateCreatesThenUpdates(t *testing.T) {
	svc, _, _ := newActivityFixture()
	ctx := context.Background()

	activity, created, err := svc.Rate(ctx, 1, 550, 8)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, activity.Rating)
	assert.Equal(t, 8, *activity.Rating)

	activity, created, err = svc.Rate(ctx, 1, 550, 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, *activity.Rating)
}

func TestRateRejectsOutOfRange(t *testing.T) {
	svc, _, _ := newActivityFixture()

	for _, rating := range []int{-1, 11} {
		_, _, err := svc.Rate(context.Background(), 1, 550, rating)
		var ve *apperrors.ValidationError
		assert.ErrorAs(t, err, &ve, "rating %d", rating)
	}
}

func TestRateUnknownMovieWritesNothing(t *testing.T) {
	svc, activities, _ := newActivityFixture()

	_, _, err := svc.Rate(context.Background(), 1, 999, 8)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, activities.rows)
}

func TestClearRatingKeepsRow(t *testing.T) {
	svc, activities, _ := newActivityFixture()
	ctx := context.Background()

	_, _, err := svc.Rate(ctx, 1, 550, 8)
	require.NoError(t, err)
	_, _, err = svc.SetFlag(ctx, 1, 550, "favorite")
	require.NoError(t, err)

	require.NoError(t, svc.ClearRating(ctx, 1, 550))

	row, err := activities.Get(ctx, 1, 550)
	require.NoError(t, err)
	assert.Nil(t, row.Rating)
	assert.True(t, row.Favorite)
}

func TestClearRatingWithoutRow(t *testing.T) {
	svc, _, _ := newActivityFixture()
	err := svc.ClearRating(context.Background(), 1, 550)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFlagRoundTrip(t *testing.T) {
	svc, activities, _ := newActivityFixture()
	ctx := context.Background()

	for _, flag := range []string{"watched", "favorite", "watch_later"} {
		t.Run(flag, func(t *testing.T) {
			_, _, err := svc.SetFlag(ctx, 2, 550, flag)
			require.NoError(t, err)

			require.NoError(t, svc.UnsetFlag(ctx, 2, 550, flag))

			// Unsetting an already-clear flag is not-found.
			assert.ErrorIs(t, svc.UnsetFlag(ctx, 2, 550, flag), apperrors.ErrNotFound)

			row, err := activities.Get(ctx, 2, 550)
			require.NoError(t, err)
			assert.False(t, row.Watched && row.Favorite && row.WatchLater)
		})
	}
}

func TestSetFlagTwiceIsIdempotent(t *testing.T) {
	svc, activities, _ := newActivityFixture()
	ctx := context.Background()

	first, created, err := svc.SetFlag(ctx, 1, 550, "favorite")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.Favorite)
	require.NotNil(t, first.FavoritedAt)

	second, created, err := svc.SetFlag(ctx, 1, 550, "favorite")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, second.Favorite)

	// Still one row, and the first-transition timestamp is not overwritten.
	assert.Len(t, activities.rows, 1)
	require.NotNil(t, second.FavoritedAt)
	assert.Equal(t, *first.FavoritedAt, *second.FavoritedAt)
}

func TestFirstTransitionTimestampSurvivesUnset(t *testing.T) {
	svc, _, _ := newActivityFixture()
	ctx := context.Background()

	first, _, err := svc.SetFlag(ctx, 1, 550, "watched")
	require.NoError(t, err)
	require.NotNil(t, first.WatchedAt)

	require.NoError(t, svc.UnsetFlag(ctx, 1, 550, "watched"))

	again, _, err := svc.SetFlag(ctx, 1, 550, "watched")
	require.NoError(t, err)
	assert.True(t, again.Watched)
	require.NotNil(t, again.WatchedAt)
	assert.Equal(t, *first.WatchedAt, *again.WatchedAt)
}

func TestSetFlagRejectsUnknownFlag(t *testing.T) {
	svc, _, _ := newActivityFixture()
	_, _, err := svc.SetFlag(context.Background(), 1, 550, "bookmarked")
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReviewLifecycle(t *testing.T) {
	svc, activities, _ := newActivityFixture()
	ctx := context.Background()

	_, created, err := svc.Review(ctx, 1, 550, "great")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.Review(ctx, 1, 550, "even better on rewatch")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, svc.DeleteReview(ctx, 1, 550))
	row, err := activities.Get(ctx, 1, 550)
	require.NoError(t, err)
	assert.Nil(t, row.Review)
}

func TestHistoryKinds(t *testing.T) {
	svc, activities, _ := newActivityFixture()
	rating := 8

	activities.joined = []models.ActivityMovie{
		{Activity: models.UserActivity{Rating: &rating, Watched: true}, Movie: models.Movie{ID: 1}},
		{Activity: models.UserActivity{Watched: true, Favorite: true}, Movie: models.Movie{ID: 2}},
		{Activity: models.UserActivity{Favorite: true}, Movie: models.Movie{ID: 3}},
		{Activity: models.UserActivity{WatchLater: true}, Movie: models.Movie{ID: 4}},
		{Activity: models.UserActivity{}, Movie: models.Movie{ID: 5}},
	}

	entries, err := svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, "rating", entries[0].Kind)
	assert.Equal(t, "watched", entries[1].Kind)
	assert.Equal(t, "favorite", entries[2].Kind)
	assert.Equal(t, "watch_later", entries[3].Kind)
	assert.Equal(t, "activity", entries[4].Kind)
}
