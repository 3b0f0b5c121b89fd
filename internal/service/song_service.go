package service

import (
	"context"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/paging"
	"github.com/yohanna4/song-manager/internal/repository"
	apperrors "github.com/yohanna4/song-manager/pkg/errors"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/google/uuid"
)

// SongQuery is a list request. Sort is the "-field" shorthand and, when
// set, takes precedence over SortField/SortOrder.
type SongQuery struct {
	Filter    repository.SongFilter
	Page      int
	Limit     int
	Sort      string
	SortField string
	SortOrder string
}

// Params resolves the query into normalised paging parameters. The default
// order is newest first.
func (q SongQuery) Params() paging.Params {
	p := paging.Params{Page: q.Page, Limit: q.Limit, SortField: q.SortField, SortOrder: q.SortOrder}
	if q.Sort != "" {
		p.SortField, p.SortOrder = paging.ParseSort(q.Sort)
	}
	return p.Normalize(repository.SortCreatedAt, repository.SortFields...)
}

// SongPage is one page of the song listing.
type SongPage = paging.Page[*domain.Song]

// SongService implements the song lifecycle over the record store.
type SongService struct {
	repo      repository.SongRepository
	publisher EventPublisher
	log       logger.Logger
	now       func() time.Time
}

// NewSongService creates a song service. A nil publisher disables events.
func NewSongService(repo repository.SongRepository, publisher EventPublisher, log logger.Logger) *SongService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &SongService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// List returns one page of the filtered catalog. Total counts the filtered
// set.
func (s *SongService) List(ctx context.Context, q SongQuery) (*SongPage, error) {
	p := q.Params()
	songs, total, err := s.repo.List(ctx, repository.ListOptions{
		Filter:     q.Filter,
		Skip:       p.Skip(),
		Limit:      p.Take(),
		SortField:  p.SortField,
		Descending: p.Descending(),
	})
	if err != nil {
		return nil, apperrors.StoreFailure(err)
	}
	page := paging.NewPage(songs, total, p)
	return &page, nil
}

// Get returns one song.
func (s *SongService) Get(ctx context.Context, id string) (*domain.Song, error) {
	song, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.StoreFailure(err)
	}
	return song, nil
}

// Create validates the input, assigns the identifier and timestamps and
// stores the song.
func (s *SongService) Create(ctx context.Context, in domain.SongInput) (*domain.Song, error) {
	song, err := domain.NewSong(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	song.ID = uuid.New().String()
	song.CreatedAt = now
	song.UpdatedAt = now

	if err := s.repo.Create(ctx, song); err != nil {
		return nil, apperrors.StoreFailure(err)
	}

	s.log.WithContext(ctx).Info("song created",
		logger.String("song_id", song.ID),
		logger.String("title", song.Title),
	)
	s.publish(ctx, domain.EventSongCreated, song.ID, song)
	return song, nil
}

// Update merges patch into the stored song and returns the merged record.
func (s *SongService) Update(ctx context.Context, id string, patch domain.SongPatch) (*domain.Song, error) {
	song, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.StoreFailure(err)
	}

	if err := patch.Apply(song, id); err != nil {
		return nil, err
	}
	song.Touch(s.now().UTC())

	if err := s.repo.Update(ctx, song); err != nil {
		return nil, apperrors.StoreFailure(err)
	}

	s.log.WithContext(ctx).Info("song updated", logger.String("song_id", id))
	s.publish(ctx, domain.EventSongUpdated, id, song)
	return song, nil
}

// Delete removes a song. Deleting a missing song is NotFound.
func (s *SongService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.StoreFailure(err)
	}

	s.log.WithContext(ctx).Info("song deleted", logger.String("song_id", id))
	s.publish(ctx, domain.EventSongDeleted, id, nil)
	return nil
}

// Ping checks the record store.
func (s *SongService) Ping(ctx context.Context) error {
	return apperrors.StoreFailure(s.repo.Ping(ctx))
}

// publish never fails the write that triggered it.
func (s *SongService) publish(ctx context.Context, typ domain.EventType, songID string, song *domain.Song) {
	event := domain.Event{
		ID:         uuid.New().String(),
		Type:       typ,
		SongID:     songID,
		Song:       song,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish catalog event",
			logger.String("type", string(typ)),
			logger.String("song_id", songID),
			logger.Error(err),
		)
	}
}
