package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"cinelog-api/internal/tmdb"
)

const (
	genreListCacheKey = "tmdb:genres"
	genreListCacheTTL = 24 * time.Hour
)

// genreCatalog serves the provider's canonical genre id-to-name table,
// cached in Redis. The provider reshuffles nothing here, but anything
// ordering-sensitive sorts the list explicitly by id before use.
type genreCatalog struct {
	provider metadataProvider
	cache    cache
}

// list returns the provider genres sorted by id.
func (g genreCatalog) list(ctx context.Context) ([]tmdb.Genre, error) {
	if raw, ok := g.cache.get(ctx, genreListCacheKey); ok {
		var genres []tmdb.Genre
		if json.Unmarshal([]byte(raw), &genres) == nil {
			return genres, nil
		}
	}

	genres, err := g.provider.GenreList(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].ID < genres[j].ID })

	if data, err := json.Marshal(genres); err == nil {
		g.cache.set(ctx, genreListCacheKey, string(data), genreListCacheTTL)
	}
	return genres, nil
}

// table returns the genre id-to-name mapping.
func (g genreCatalog) table(ctx context.Context) (map[int]string, error) {
	genres, err := g.list(ctx)
	if err != nil {
		return nil, err
	}
	table := make(map[int]string, len(genres))
	for _, genre := range genres {
		table[genre.ID] = genre.Name
	}
	return table, nil
}

// names maps provider genre ids to names, skipping unknown ids and keeping
// the input order.
func genreNames(table map[int]string, ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := table[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
