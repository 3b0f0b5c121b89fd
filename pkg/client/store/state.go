// Package store holds client-side catalog state. State changes only through
// Reduce, and effect tasks run through a Dispatcher.
package store

import (
	"slices"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/client"
)

// State is the client view of the catalog.
type State struct {
	Songs      []domain.Song
	Pagination *client.Pagination
	Loading    bool
	Error      string
}

func (s State) clone() State {
	s.Songs = slices.Clone(s.Songs)
	if s.Pagination != nil {
		p := *s.Pagination
		s.Pagination = &p
	}
	return s
}

// ActionType names a state transition.
type ActionType string

const (
	FetchStart    ActionType = "songs/fetchStart"
	FetchSuccess  ActionType = "songs/fetchSuccess"
	FetchFailure  ActionType = "songs/fetchFailure"
	CreateStart   ActionType = "songs/createStart"
	CreateSuccess ActionType = "songs/createSuccess"
	CreateFailure ActionType = "songs/createFailure"
	UpdateStart   ActionType = "songs/updateStart"
	UpdateSuccess ActionType = "songs/updateSuccess"
	UpdateFailure ActionType = "songs/updateFailure"
	DeleteStart   ActionType = "songs/deleteStart"
	DeleteSuccess ActionType = "songs/deleteSuccess"
	DeleteFailure ActionType = "songs/deleteFailure"
)

// Action is a state transition with its payload. Which payload fields are
// read depends on Type.
type Action struct {
	Type       ActionType
	Songs      []domain.Song      // FetchSuccess
	Pagination *client.Pagination // FetchSuccess
	Song       *domain.Song       // CreateSuccess, UpdateSuccess
	ID         string             // DeleteSuccess
	Error      string             // *Failure
}

// Reduce returns the state after a. It never modifies s.
func Reduce(s State, a Action) State {
	switch a.Type {
	case FetchStart, CreateStart, UpdateStart, DeleteStart:
		s.Loading = true
		s.Error = ""

	case FetchSuccess:
		s.Songs = slices.Clone(a.Songs)
		if s.Songs == nil {
			s.Songs = []domain.Song{}
		}
		s.Pagination = nil
		if a.Pagination != nil {
			p := *a.Pagination
			s.Pagination = &p
		}
		s.Loading = false

	case CreateSuccess:
		if a.Song != nil {
			songs := make([]domain.Song, 0, len(s.Songs)+1)
			songs = append(songs, *a.Song)
			s.Songs = append(songs, s.Songs...)
		}
		s.Loading = false

	case UpdateSuccess:
		if a.Song != nil {
			songs := slices.Clone(s.Songs)
			for i := range songs {
				if songs[i].ID == a.Song.ID {
					songs[i] = *a.Song
				}
			}
			s.Songs = songs
		}
		s.Loading = false

	case DeleteSuccess:
		s.Songs = slices.DeleteFunc(slices.Clone(s.Songs), func(song domain.Song) bool {
			return song.ID == a.ID
		})
		s.Loading = false

	case FetchFailure, CreateFailure, UpdateFailure, DeleteFailure:
		s.Loading = false
		s.Error = a.Error
	}
	return s
}
