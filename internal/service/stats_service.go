package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/paging"
	"github.com/yohanna4/song-manager/internal/repository"
	apperrors "github.com/yohanna4/song-manager/pkg/errors"

	"golang.org/x/sync/singleflight"
)

// Group view sort fields.
const (
	SortTotalSongs = "totalSongs"
	SortAlbumCount = "albumCount"
	SortArtist     = "artist"
	SortAlbum      = "album"
	SortGenre      = "genre"
)

var (
	artistFields = paging.Fields[domain.ArtistStats]{
		SortTotalSongs: func(a, b domain.ArtistStats) int { return cmp.Compare(a.TotalSongs, b.TotalSongs) },
		SortAlbumCount: func(a, b domain.ArtistStats) int { return cmp.Compare(a.AlbumCount, b.AlbumCount) },
		SortArtist:     func(a, b domain.ArtistStats) int { return cmp.Compare(a.Artist, b.Artist) },
	}
	albumFields = paging.Fields[domain.AlbumStats]{
		SortTotalSongs: func(a, b domain.AlbumStats) int { return cmp.Compare(a.TotalSongs, b.TotalSongs) },
		SortAlbum:      func(a, b domain.AlbumStats) int { return cmp.Compare(a.Album, b.Album) },
		SortArtist:     func(a, b domain.AlbumStats) int { return cmp.Compare(a.Artist, b.Artist) },
	}
	genreFields = paging.Fields[domain.GenreStats]{
		SortTotalSongs: func(a, b domain.GenreStats) int { return cmp.Compare(a.TotalSongs, b.TotalSongs) },
		SortGenre:      func(a, b domain.GenreStats) int { return cmp.Compare(a.Genre, b.Genre) },
	}
)

func artistKey(a domain.ArtistStats) string { return a.Artist }
func albumKey(a domain.AlbumStats) string   { return a.Album }
func genreKey(g domain.GenreStats) string   { return g.Genre }

// StatsService computes catalog statistics. Nothing is cached: every call
// reads a fresh snapshot of the store, though concurrent callers share one
// in-flight read.
type StatsService struct {
	repo   repository.SongRepository
	flight singleflight.Group
}

// NewStatsService creates a statistics service.
func NewStatsService(repo repository.SongRepository) *StatsService {
	return &StatsService{repo: repo}
}

// GetStats returns the statistics snapshot. Breakdowns are ordered by
// grouping key ascending.
func (s *StatsService) GetStats(ctx context.Context) (*domain.Stats, error) {
	g, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return g.stats(), nil
}

// ListArtists returns one page of the per-artist view.
func (s *StatsService) ListArtists(ctx context.Context, p paging.Params) (*paging.Page[domain.ArtistStats], error) {
	g, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	page := window(g.artists, p, artistFields, artistKey)
	return &page, nil
}

// ListAlbums returns one page of the per-album view.
func (s *StatsService) ListAlbums(ctx context.Context, p paging.Params) (*paging.Page[domain.AlbumStats], error) {
	g, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	page := window(g.albums, p, albumFields, albumKey)
	return &page, nil
}

// ListGenres returns one page of the per-genre view.
func (s *StatsService) ListGenres(ctx context.Context, p paging.Params) (*paging.Page[domain.GenreStats], error) {
	g, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	page := window(g.genres, p, genreFields, genreKey)
	return &page, nil
}

// snapshotTimeout bounds the shared store read, which outlives any single
// caller's context.
const snapshotTimeout = 30 * time.Second

// snapshot results may be shared between goroutines and must be treated
// as read-only. The shared read runs detached from the caller that started
// it, so a caller that goes away does not fail the others; each caller
// still stops waiting when its own context is done.
func (s *StatsService) snapshot(ctx context.Context) (*groups, error) {
	ch := s.flight.DoChan("snapshot", func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()

		songs, err := s.repo.All(readCtx)
		if err != nil {
			return nil, apperrors.StoreFailure(err)
		}
		return group(songs), nil
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.StoreFailure(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*groups), nil
	}
}

func window[T any](items []T, p paging.Params, fields paging.Fields[T], key func(T) string) paging.Page[T] {
	p = p.Normalize(SortTotalSongs, fields.Names()...)
	items = slices.Clone(items)
	paging.Sort(items, p, fields, key)
	return paging.Window(items, p)
}

// groups holds the three breakdowns in first-seen order.
type groups struct {
	total   int
	genres  []domain.GenreStats
	artists []domain.ArtistStats
	albums  []domain.AlbumStats
}

// group builds all three breakdowns in a single pass so they describe the
// same snapshot. Keys compare with exact, case-sensitive equality.
func group(songs []*domain.Song) *groups {
	var (
		g         = &groups{total: len(songs)}
		genreIdx  = make(map[string]int)
		artistIdx = make(map[string]int)
		albumIdx  = make(map[string]int)
		// albums already listed per artist
		artistAlbums = make(map[string]map[string]struct{})
	)

	for _, s := range songs {
		i, ok := genreIdx[s.Genre]
		if !ok {
			i = len(g.genres)
			genreIdx[s.Genre] = i
			g.genres = append(g.genres, domain.GenreStats{Genre: s.Genre})
		}
		g.genres[i].TotalSongs++
		g.genres[i].Songs = append(g.genres[i].Songs, s.Title)

		i, ok = artistIdx[s.Artist]
		if !ok {
			i = len(g.artists)
			artistIdx[s.Artist] = i
			g.artists = append(g.artists, domain.ArtistStats{Artist: s.Artist})
			artistAlbums[s.Artist] = make(map[string]struct{})
		}
		a := &g.artists[i]
		a.TotalSongs++
		a.Songs = append(a.Songs, s.Title)
		if _, seen := artistAlbums[s.Artist][s.Album]; !seen {
			artistAlbums[s.Artist][s.Album] = struct{}{}
			a.Albums = append(a.Albums, s.Album)
			a.AlbumCount++
		}

		i, ok = albumIdx[s.Album]
		if !ok {
			i = len(g.albums)
			albumIdx[s.Album] = i
			g.albums = append(g.albums, domain.AlbumStats{Album: s.Album, Artist: s.Artist})
		}
		g.albums[i].TotalSongs++
		g.albums[i].Songs = append(g.albums[i].Songs, s.Title)
	}
	return g
}

func (g *groups) stats() *domain.Stats {
	genres := slices.Clone(g.genres)
	artists := slices.Clone(g.artists)
	albums := slices.Clone(g.albums)
	slices.SortFunc(genres, func(a, b domain.GenreStats) int { return cmp.Compare(a.Genre, b.Genre) })
	slices.SortFunc(artists, func(a, b domain.ArtistStats) int { return cmp.Compare(a.Artist, b.Artist) })
	slices.SortFunc(albums, func(a, b domain.AlbumStats) int { return cmp.Compare(a.Album, b.Album) })

	if genres == nil {
		genres = []domain.GenreStats{}
	}
	if artists == nil {
		artists = []domain.ArtistStats{}
	}
	if albums == nil {
		albums = []domain.AlbumStats{}
	}

	return &domain.Stats{
		TotalSongs:     g.total,
		TotalArtists:   len(g.artists),
		TotalAlbums:    len(g.albums),
		TotalGenres:    len(g.genres),
		SongsPerGenre:  genres,
		SongsPerArtist: artists,
		SongsPerAlbum:  albums,
	}
}
