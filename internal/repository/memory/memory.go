// Package memory is an in-process record store. It backs the "memory" store
// driver and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/paging"
	"github.com/yohanna4/song-manager/internal/repository"
)

// SongRepository keeps songs in insertion order behind a mutex.
type SongRepository struct {
	mu    sync.RWMutex
	songs map[string]*domain.Song
	order []string
}

// NewSongRepository creates an empty store.
func NewSongRepository() *SongRepository {
	return &SongRepository{songs: make(map[string]*domain.Song)}
}

var _ repository.SongRepository = (*SongRepository)(nil)

func (r *SongRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Song, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	matched := make([]*domain.Song, 0, len(r.order))
	for _, id := range r.order {
		if s := r.songs[id]; opts.Filter.Matches(s) {
			matched = append(matched, s.Clone())
		}
	}
	r.mu.RUnlock()

	order := paging.OrderAsc
	if opts.Descending {
		order = paging.OrderDesc
	}
	paging.Sort(matched, paging.Params{SortField: opts.SortField, SortOrder: order}, repository.SongComparisons, repository.SongID)

	total := len(matched)
	start := min(max(opts.Skip, 0), total)
	end := total
	if opts.Limit > 0 {
		end = start + min(opts.Limit, total-start)
	}
	return matched[start:end], total, nil
}

func (r *SongRepository) Get(ctx context.Context, id string) (*domain.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.songs[id]
	if !ok {
		return nil, domain.ErrSongNotFound
	}
	return s.Clone(), nil
}

func (r *SongRepository) Create(ctx context.Context, song *domain.Song) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.songs[song.ID]; !ok {
		r.order = append(r.order, song.ID)
	}
	r.songs[song.ID] = song.Clone()
	return nil
}

func (r *SongRepository) Update(ctx context.Context, song *domain.Song) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.songs[song.ID]; !ok {
		return domain.ErrSongNotFound
	}
	r.songs[song.ID] = song.Clone()
	return nil
}

func (r *SongRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.songs[id]; !ok {
		return domain.ErrSongNotFound
	}
	delete(r.songs, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *SongRepository) All(ctx context.Context) ([]*domain.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Song, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.songs[id].Clone())
	}
	return out, nil
}

func (r *SongRepository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *SongRepository) Close(context.Context) error { return nil }

// Len returns the number of stored songs.
func (r *SongRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.songs)
}
