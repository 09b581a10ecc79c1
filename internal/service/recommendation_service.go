package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

const (
	// Only ratings strictly above this weigh into genre affinity; boundary
	// values are excluded to bias toward strong endorsements.
	weightThreshold = 7.5
	// Ratings at or above this looser cutoff define the interest set used
	// for candidate eligibility and trending exclusion.
	interestThreshold = 6.5

	candidatePoolLimit = 50
	primaryLimit       = 24
	trendingQualifyCap = 20
	diversityLimit     = 6
	spliceEvery        = 4
)

// Recommendation justification strings.
const (
	reasonAffinity = "matches your highly-rated genres"
	reasonTrending = "trending globally — added for diversity"
)

// RecommendationService composes personalized recommendation lists from the
// local catalog and the provider's trending pool.
type RecommendationService struct {
	movies     movieStore
	activities activityStore
	provider   metadataProvider
	genres     genreCatalog
	imageBase  string
}

// NewRecommendationService creates a RecommendationService. rdb may be nil;
// it only backs the genre-table cache, never the recommendation output,
// which must always reflect the user's current ratings.
func NewRecommendationService(movies movieStore, activities activityStore, provider metadataProvider, rdb *redis.Client, imageBase string) *RecommendationService {
	return &RecommendationService{
		movies:     movies,
		activities: activities,
		provider:   provider,
		genres:     genreCatalog{provider: provider, cache: cache{rdb: rdb}},
		imageBase:  imageBase,
	}
}

// ScoreGenres computes the user's genre-affinity weights from ratings
// strictly above the weighting threshold: ln(1+count) * avg_rating per
// genre. An empty map means insufficient signal.
func (s *RecommendationService) ScoreGenres(ctx context.Context, userID int64) (map[string]float64, error) {
	stats, err := s.activities.GenreStats(ctx, userID, weightThreshold)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]float64, len(stats))
	for _, stat := range stats {
		weights[stat.Genre] = math.Log(1+float64(stat.Count)) * stat.AvgRating
	}
	return weights, nil
}

// Recommend builds the ordered recommendation list for a user: affinity-
// ranked local candidates interleaved with trending picks from genres
// outside the user's interest set. Provider failures degrade the result to
// local-only rather than failing the request.
func (s *RecommendationService) Recommend(ctx context.Context, userID int64) (*models.RecommendationResponse, error) {
	interests, err := s.activities.InterestGenres(ctx, userID, interestThreshold)
	if err != nil {
		return nil, err
	}
	if len(interests) == 0 {
		return &models.RecommendationResponse{
			Recommendations: []models.RecommendationItem{},
			Weights:         map[string]float64{},
			Message:         "no genre interests identified yet; rate some movies first",
		}, nil
	}

	weights, err := s.ScoreGenres(ctx, userID)
	if err != nil {
		return nil, err
	}

	primary, err := s.localCandidates(ctx, userID, interests, weights)
	if err != nil {
		return nil, err
	}

	// The diversity pool is optional augmentation: on any provider failure
	// we fall back to the local candidates alone.
	diversity, err := s.diversityPool(ctx, userID, interests)
	if err != nil {
		slog.Warn("trending augmentation unavailable, serving local-only recommendations",
			"user_id", userID, "error", err)
		diversity = nil
	}

	merged := interleave(primary, diversity)
	items := s.annotate(ctx, merged)

	return &models.RecommendationResponse{
		Total:           len(items),
		Recommendations: items,
		Weights:         weights,
	}, nil
}

// mergeEntry is one pre-annotation entry of the merged sequence: either a
// local catalog movie or a provider trending entry awaiting a detail fetch.
type mergeEntry struct {
	local    *models.Movie
	trending *tmdb.Movie
}

// localCandidates ranks unrated catalog movies from the interest genres by
// their summed affinity weight and keeps the top slice. Candidates arrive in
// ascending-id order and the sort is stable, so ties keep that order.
func (s *RecommendationService) localCandidates(ctx context.Context, userID int64, interests []string, weights map[string]float64) ([]mergeEntry, error) {
	candidates, err := s.movies.Candidates(ctx, interests, userID, candidatePoolLimit)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		var score float64
		for _, genre := range candidates[i].Genres {
			score += weights[genre]
		}
		scores[i] = score
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	limit := len(order)
	if limit > primaryLimit {
		limit = primaryLimit
	}
	primary := make([]mergeEntry, 0, limit)
	for _, idx := range order[:limit] {
		primary = append(primary, mergeEntry{local: &candidates[idx]})
	}
	return primary, nil
}

// diversityPool collects trending entries from genres outside the interest
// set, excluding movies the user has already rated and entries without a
// title. Scanning stops once enough qualify; the first few are kept.
func (s *RecommendationService) diversityPool(ctx context.Context, userID int64, interests []string) ([]mergeEntry, error) {
	trending, err := s.provider.Trending(ctx, "week")
	if err != nil {
		return nil, err
	}
	table, err := s.genres.table(ctx)
	if err != nil {
		return nil, err
	}
	rated, err := s.activities.RatedMovieIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	interestSet := make(map[string]struct{}, len(interests))
	for _, genre := range interests {
		interestSet[genre] = struct{}{}
	}

	qualifying := make([]tmdb.Movie, 0, trendingQualifyCap)
	for _, entry := range trending {
		if entry.ID == 0 || entry.Title == "" {
			continue
		}
		if _, ok := rated[entry.ID]; ok {
			continue
		}
		if overlapsInterests(table, entry.GenreIDs, interestSet) {
			continue
		}
		qualifying = append(qualifying, entry)
		if len(qualifying) >= trendingQualifyCap {
			break
		}
	}

	limit := len(qualifying)
	if limit > diversityLimit {
		limit = diversityLimit
	}
	diversity := make([]mergeEntry, 0, limit)
	for i := 0; i < limit; i++ {
		entry := qualifying[i]
		diversity = append(diversity, mergeEntry{trending: &entry})
	}
	return diversity, nil
}

func overlapsInterests(table map[int]string, genreIDs []int, interests map[string]struct{}) bool {
	for _, id := range genreIDs {
		name, ok := table[id]
		if !ok {
			continue
		}
		if _, hit := interests[name]; hit {
			return true
		}
	}
	return false
}

// interleave walks primary in order and splices in the next unused
// diversity entry after every 4th primary item; leftovers of either list
// are drained at the end, keeping the primary-majority cadence.
func interleave(primary, diversity []mergeEntry) []mergeEntry {
	merged := make([]mergeEntry, 0, len(primary)+len(diversity))
	d := 0
	for i, entry := range primary {
		merged = append(merged, entry)
		if (i+1)%spliceEvery == 0 && d < len(diversity) {
			merged = append(merged, diversity[d])
			d++
		}
	}
	for ; d < len(diversity); d++ {
		merged = append(merged, diversity[d])
	}
	return merged
}

// annotate turns the merged sequence into response items. Local movies are
// emitted directly; trending entries get a detail fetch for full genre
// names and overview, and are skipped silently when the fetch fails or
// yields no title.
func (s *RecommendationService) annotate(ctx context.Context, merged []mergeEntry) []models.RecommendationItem {
	items := make([]models.RecommendationItem, 0, len(merged))
	for _, entry := range merged {
		if entry.local != nil {
			m := entry.local
			items = append(items, models.RecommendationItem{
				ID:        m.ID,
				Title:     m.Title,
				Overview:  m.Overview,
				Rating:    m.Rating,
				PosterURL: m.PosterURL(s.imageBase),
				Genres:    m.Genres,
				Source:    models.SourceLocal,
				Reason:    reasonAffinity,
			})
			continue
		}

		details, err := s.provider.FetchByID(ctx, entry.trending.ID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				slog.Warn("trending detail fetch failed, skipping entry",
					"movie_id", entry.trending.ID, "error", err)
			}
			continue
		}

		item := models.RecommendationItem{
			ID:        details.ID,
			Title:     details.Title,
			Overview:  details.Overview,
			PosterURL: posterURL(s.imageBase, details.PosterPath),
			Genres:    make([]string, 0, len(details.Genres)),
			Source:    models.SourceProvider,
			Reason:    reasonTrending,
		}
		if details.VoteAverage > 0 {
			rating := details.VoteAverage
			item.Rating = &rating
		}
		for _, g := range details.Genres {
			item.Genres = append(item.Genres, g.Name)
		}
		items = append(items, item)
	}
	return items
}
