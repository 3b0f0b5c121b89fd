package store

import (
	"context"
	"errors"
	"sync"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/client"
)

// API is the part of the song service the dispatcher calls.
// *client.Client implements it.
type API interface {
	FetchSongs(ctx context.Context, p client.ListParams) (*client.SongsResponse, error)
	CreateSong(ctx context.Context, in domain.SongInput) (*domain.Song, error)
	UpdateSong(ctx context.Context, id string, patch domain.SongPatch) (*domain.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

var _ API = (*client.Client)(nil)

// category is an intent lifecycle; one task per category is current.
type category int

const (
	categoryFetch category = iota
	categoryCreate
	categoryUpdate
	categoryDelete
)

// Dispatcher runs effect tasks for user intents. Each intent dispatches its
// Start action, calls the API on a goroutine and dispatches Success or
// Failure. A new intent of the same category supersedes the running one:
// the old task's context is cancelled and its result is dropped.
//
// Listeners are notified while the dispatcher lock is held, so they must not
// start new intents synchronously.
type Dispatcher struct {
	ctx   context.Context
	store *Store
	api   API

	mu     sync.Mutex
	gen    map[category]uint64
	cancel map[category]context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Cancelling ctx cancels every task.
func NewDispatcher(ctx context.Context, store *Store, api API) *Dispatcher {
	return &Dispatcher{
		ctx:    ctx,
		store:  store,
		api:    api,
		gen:    make(map[category]uint64),
		cancel: make(map[category]context.CancelFunc),
	}
}

// FetchSongs loads a page of songs.
func (d *Dispatcher) FetchSongs(p client.ListParams) {
	d.run(categoryFetch, FetchStart, func(ctx context.Context) Action {
		resp, err := d.api.FetchSongs(ctx, p)
		if err != nil {
			return failure(FetchFailure, err, "Failed to fetch songs")
		}
		pagination := resp.Pagination
		return Action{Type: FetchSuccess, Songs: resp.Data, Pagination: &pagination}
	})
}

// CreateSong creates a song and prepends it on success.
func (d *Dispatcher) CreateSong(in domain.SongInput) {
	d.run(categoryCreate, CreateStart, func(ctx context.Context) Action {
		song, err := d.api.CreateSong(ctx, in)
		if err != nil {
			return failure(CreateFailure, err, "Failed to create song")
		}
		return Action{Type: CreateSuccess, Song: song}
	})
}

// UpdateSong patches a song and replaces it in place on success.
func (d *Dispatcher) UpdateSong(id string, patch domain.SongPatch) {
	d.run(categoryUpdate, UpdateStart, func(ctx context.Context) Action {
		song, err := d.api.UpdateSong(ctx, id, patch)
		if err != nil {
			return failure(UpdateFailure, err, "Failed to update song")
		}
		return Action{Type: UpdateSuccess, Song: song}
	})
}

// DeleteSong deletes a song and removes it on success.
func (d *Dispatcher) DeleteSong(id string) {
	d.run(categoryDelete, DeleteStart, func(ctx context.Context) Action {
		if err := d.api.DeleteSong(ctx, id); err != nil {
			return failure(DeleteFailure, err, "Failed to delete song")
		}
		return Action{Type: DeleteSuccess, ID: id}
	})
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(cat category, start ActionType, task func(context.Context) Action) {
	ctx, cancel := context.WithCancel(d.ctx)

	d.mu.Lock()
	if prev := d.cancel[cat]; prev != nil {
		prev()
	}
	d.gen[cat]++
	gen := d.gen[cat]
	d.cancel[cat] = cancel
	d.store.Dispatch(Action{Type: start})
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer cancel()

		result := task(ctx)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen[cat] != gen {
			return
		}
		delete(d.cancel, cat)
		d.store.Dispatch(result)
	}()
}

func failure(typ ActionType, err error, fallback string) Action {
	msg := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	if msg == "" {
		msg = fallback
	}
	return Action{Type: typ, Error: msg}
}
