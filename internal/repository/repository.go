package repository

import (
	"cmp"
	"context"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/paging"
)

// SongFilter holds exact-match filters. Empty fields impose no constraint.
type SongFilter struct {
	Genre  string
	Artist string
	Album  string
}

// Matches reports whether s passes the filter.
func (f SongFilter) Matches(s *domain.Song) bool {
	return (f.Genre == "" || s.Genre == f.Genre) &&
		(f.Artist == "" || s.Artist == f.Artist) &&
		(f.Album == "" || s.Album == f.Album)
}

// ListOptions describes one page of a filtered song listing. SortField must
// be one of SortFields; ties are broken by ID ascending.
type ListOptions struct {
	Filter     SongFilter
	Skip       int
	Limit      int
	SortField  string
	Descending bool
}

// SongRepository is the record store.
type SongRepository interface {
	// List returns one page of the filtered set and the size of the whole
	// filtered set.
	List(ctx context.Context, opts ListOptions) ([]*domain.Song, int, error)
	Get(ctx context.Context, id string) (*domain.Song, error)
	Create(ctx context.Context, song *domain.Song) error
	Update(ctx context.Context, song *domain.Song) error
	Delete(ctx context.Context, id string) error
	// All returns every song in store order (oldest first) in one read.
	All(ctx context.Context) ([]*domain.Song, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Sortable song fields, by JSON name.
const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortTitle       = "title"
	SortArtist      = "artist"
	SortAlbum       = "album"
	SortGenre       = "genre"
	SortReleaseDate = "releaseDate"
	SortPlayCount   = "playCount"
)

// SongComparisons orders songs in memory by each sortable field.
var SongComparisons = paging.Fields[*domain.Song]{
	SortCreatedAt: func(a, b *domain.Song) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortUpdatedAt: func(a, b *domain.Song) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	SortTitle:     func(a, b *domain.Song) int { return cmp.Compare(a.Title, b.Title) },
	SortArtist:    func(a, b *domain.Song) int { return cmp.Compare(a.Artist, b.Artist) },
	SortAlbum:     func(a, b *domain.Song) int { return cmp.Compare(a.Album, b.Album) },
	SortGenre:     func(a, b *domain.Song) int { return cmp.Compare(a.Genre, b.Genre) },
	SortReleaseDate: func(a, b *domain.Song) int {
		switch {
		case a.ReleaseDate == nil && b.ReleaseDate == nil:
			return 0
		case a.ReleaseDate == nil:
			return -1
		case b.ReleaseDate == nil:
			return 1
		}
		return a.ReleaseDate.Compare(*b.ReleaseDate)
	},
	SortPlayCount: func(a, b *domain.Song) int { return cmp.Compare(a.PlayCount, b.PlayCount) },
}

// SortFields lists the sortable song fields.
var SortFields = SongComparisons.Names()

// SongID is the tie-break key for song listings.
func SongID(s *domain.Song) string { return s.ID }
