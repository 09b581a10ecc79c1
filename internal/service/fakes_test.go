package service

import (
	"context"
	"errors"
	"time"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/models"
	"cinelog-api/internal/tmdb"
)

// fakeMovieStore is an in-memory movieStore with overridable behavior.
type fakeMovieStore struct {
	movies     map[int64]*models.Movie
	upserts    []int64
	candidates []models.Movie

	candidatesErr error
}

func newFakeMovieStore() *fakeMovieStore {
	return &fakeMovieStore{movies: make(map[int64]*models.Movie)}
}

func (f *fakeMovieStore) GetByID(_ context.Context, id int64) (*models.Movie, error) {
	if m, ok := f.movies[id]; ok {
		clone := *m
		return &clone, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeMovieStore) Upsert(_ context.Context, m *models.Movie) error {
	clone := *m
	f.movies[m.ID] = &clone
	f.upserts = append(f.upserts, m.ID)
	return nil
}

func (f *fakeMovieStore) List(_ context.Context, params models.CatalogParams) ([]models.Movie, int, error) {
	out := make([]models.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (f *fakeMovieStore) ByGenres(_ context.Context, names []string) ([]models.Movie, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []models.Movie
	for _, m := range f.movies {
		for _, g := range m.Genres {
			if _, ok := want[g]; ok {
				out = append(out, *m)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeMovieStore) ByRatingRange(_ context.Context, min, max float64) ([]models.Movie, error) {
	var out []models.Movie
	for _, m := range f.movies {
		if m.Rating != nil && *m.Rating >= min && *m.Rating <= max {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMovieStore) Candidates(_ context.Context, genres []string, excludeUserID int64, limit int) ([]models.Movie, error) {
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	if limit > len(f.candidates) {
		limit = len(f.candidates)
	}
	return append([]models.Movie(nil), f.candidates[:limit]...), nil
}

// fakeActivityStore keys rows by (user, movie).
type fakeActivityStore struct {
	rows map[[2]int64]*models.UserActivity

	genreStats []models.GenreStat
	interests  []string
	rated      map[int64]struct{}
	joined     []models.ActivityMovie
	reviews    []models.ReviewEntry
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{
		rows:  make(map[[2]int64]*models.UserActivity),
		rated: make(map[int64]struct{}),
	}
}

func (f *fakeActivityStore) Get(_ context.Context, userID, movieID int64) (*models.UserActivity, error) {
	if a, ok := f.rows[[2]int64{userID, movieID}]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeActivityStore) Upsert(_ context.Context, userID, movieID int64, patch models.ActivityPatch) (*models.UserActivity, error) {
	key := [2]int64{userID, movieID}
	a, ok := f.rows[key]
	if !ok {
		a = &models.UserActivity{UserID: userID, MovieID: movieID}
		f.rows[key] = a
	}
	if patch.Rating != nil {
		a.Rating = patch.Rating
	}
	if patch.Watched != nil {
		a.Watched = *patch.Watched
		if *patch.Watched && a.WatchedAt == nil {
			now := time.Now()
			a.WatchedAt = &now
		}
	}
	if patch.Favorite != nil {
		a.Favorite = *patch.Favorite
		if *patch.Favorite && a.FavoritedAt == nil {
			now := time.Now()
			a.FavoritedAt = &now
		}
	}
	if patch.WatchLater != nil {
		a.WatchLater = *patch.WatchLater
	}
	if patch.Review != nil {
		a.Review = patch.Review
	}
	clone := *a
	return &clone, nil
}

func (f *fakeActivityStore) ClearField(_ context.Context, userID, movieID int64, field string) error {
	a, ok := f.rows[[2]int64{userID, movieID}]
	if !ok {
		return apperrors.ErrNotFound
	}
	switch field {
	case "rating":
		a.Rating = nil
	case "review":
		a.Review = nil
	}
	return nil
}

func (f *fakeActivityStore) UnsetFlag(_ context.Context, userID, movieID int64, flag string) error {
	a, ok := f.rows[[2]int64{userID, movieID}]
	if !ok {
		return apperrors.ErrNotFound
	}
	switch flag {
	case "watched":
		if !a.Watched {
			return apperrors.ErrNotFound
		}
		a.Watched = false
	case "favorite":
		if !a.Favorite {
			return apperrors.ErrNotFound
		}
		a.Favorite = false
	case "watch_later":
		if !a.WatchLater {
			return apperrors.ErrNotFound
		}
		a.WatchLater = false
	}
	return nil
}

func (f *fakeActivityStore) ListByFlag(_ context.Context, userID int64, flag string) ([]models.ActivityMovie, error) {
	return f.joined, nil
}

func (f *fakeActivityStore) ListRated(_ context.Context, userID int64) ([]models.ActivityMovie, error) {
	return f.joined, nil
}

func (f *fakeActivityStore) History(_ context.Context, userID int64) ([]models.ActivityMovie, error) {
	return f.joined, nil
}

func (f *fakeActivityStore) Reviews(_ context.Context, movieID int64) ([]models.ReviewEntry, error) {
	return f.reviews, nil
}

func (f *fakeActivityStore) GenreStats(_ context.Context, userID int64, threshold float64) ([]models.GenreStat, error) {
	return f.genreStats, nil
}

func (f *fakeActivityStore) InterestGenres(_ context.Context, userID int64, threshold float64) ([]string, error) {
	return f.interests, nil
}

func (f *fakeActivityStore) RatedMovieIDs(_ context.Context, userID int64) (map[int64]struct{}, error) {
	return f.rated, nil
}

// fakeProvider is a metadataProvider stub with canned responses and
// per-method error injection.
type fakeProvider struct {
	details  map[int64]*tmdb.MovieDetails
	trending []tmdb.Movie
	genres   []tmdb.Genre
	page     *tmdb.Page
	poster   []byte

	fetchCalls int

	fetchErr    error
	trendingErr error
	genresErr   error
	discoverErr error
	posterErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{details: make(map[int64]*tmdb.MovieDetails)}
}

func (f *fakeProvider) FetchByID(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeProvider) Search(_ context.Context, query string, page int) (*tmdb.Page, error) {
	if f.page == nil {
		return &tmdb.Page{Page: page}, nil
	}
	return f.page, nil
}

func (f *fakeProvider) Discover(_ context.Context, p tmdb.DiscoverParams) (*tmdb.Page, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	if f.page == nil {
		return &tmdb.Page{Page: 1, TotalPages: 1}, nil
	}
	return f.page, nil
}

func (f *fakeProvider) Trending(_ context.Context, period string) ([]tmdb.Movie, error) {
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	return f.trending, nil
}

func (f *fakeProvider) GenreList(_ context.Context) ([]tmdb.Genre, error) {
	if f.genresErr != nil {
		return nil, f.genresErr
	}
	return f.genres, nil
}

func (f *fakeProvider) DownloadPoster(_ context.Context, posterPath string) ([]byte, error) {
	if f.posterErr != nil {
		return nil, f.posterErr
	}
	return f.poster, nil
}

// fakeResolver satisfies movieResolver for ActivityService tests.
type fakeResolver struct {
	known map[int64]*models.Movie
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, id int64) (*models.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.known[id]; ok {
		return m, nil
	}
	return nil, apperrors.ErrNotFound
}

// fakeUserStore keeps accounts keyed by id and email.
type fakeUserStore struct {
	byID    map[int64]*models.User
	byEmail map[string]*models.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, passwordHash string) (*models.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, apperrors.ErrConflict
	}
	f.nextID++
	u := &models.User{ID: f.nextID, Name: name, Email: email, PasswordHash: passwordHash}
	f.byID[u.ID] = u
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserStore) Update(_ context.Context, id int64, name, email, passwordHash *string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	return u, nil
}

var errStoreDown = errors.New("store unavailable")
