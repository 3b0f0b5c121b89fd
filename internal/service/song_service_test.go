package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/repository"
	"github.com/yohanna4/song-manager/internal/repository/memory"
	apperrors "github.com/yohanna4/song-manager/pkg/errors"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSongRepository is a mock implementation of repository.SongRepository
type MockSongRepository struct {
	mock.Mock
}

func (m *MockSongRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Song, int, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Song), args.Int(1), args.Error(2)
}

func (m *MockSongRepository) Get(ctx context.Context, id string) (*domain.Song, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Song), args.Error(1)
}

func (m *MockSongRepository) Create(ctx context.Context, song *domain.Song) error {
	return m.Called(ctx, song).Error(0)
}

func (m *MockSongRepository) Update(ctx context.Context, song *domain.Song) error {
	return m.Called(ctx, song).Error(0)
}

func (m *MockSongRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSongRepository) All(ctx context.Context) ([]*domain.Song, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Song), args.Error(1)
}

func (m *MockSongRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSongRepository) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newSongService(repo repository.SongRepository, pub EventPublisher) *SongService {
	return NewSongService(repo, pub, logger.Nop())
}

func input(title, artist, album, genre string) domain.SongInput {
	return domain.SongInput{Title: title, Artist: artist, Album: album, Genre: genre}
}

func seedScenario(t *testing.T, svc *SongService) []*domain.Song {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var out []*domain.Song
	for i, in := range []domain.SongInput{
		input("Heroes", "Bowie", "Heroes", "Pop"),
		input("Sound and Vision", "Bowie", "Low", "Rock"),
		input("Warszawa", "Eno", "Low", "Rock"),
	} {
		ts := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return ts }
		s, err := svc.Create(ctx, in)
		require.NoError(t, err)
		out = append(out, s)
	}
	svc.now = time.Now
	return out
}

func TestSongService_CreateThenGet(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.SongInput{
		Title: "Heroes", Artist: "Bowie", Album: "Heroes", Genre: "Pop", ReleaseDate: "1977-10-14",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestSongService_CreateValidation(t *testing.T) {
	repo := new(MockSongRepository)
	svc := newSongService(repo, nil)

	_, err := svc.Create(context.Background(), domain.SongInput{Title: "only title"})
	require.Error(t, err)
	assert.True(t, apperrors.IsError(err, apperrors.ErrValidationFailed))

	appErr, _ := apperrors.As(err)
	assert.Equal(t, []string{"artist", "album", "genre"}, appErr.Details)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSongService_List_FilterAndPagination(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	seedScenario(t, svc)

	page, err := svc.List(context.Background(), SongQuery{
		Filter: repository.SongFilter{Genre: "Rock"},
		Page:   1,
		Limit:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	// newest first by default
	assert.Equal(t, "Warszawa", page.Data[0].Title)
}

func TestSongService_List_SortShorthand(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	seedScenario(t, svc)
	ctx := context.Background()

	page, err := svc.List(ctx, SongQuery{Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Heroes", "Sound and Vision", "Warszawa"}, titles(page.Data))

	page, err = svc.List(ctx, SongQuery{Sort: "-createdAt", SortField: "title", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Warszawa", "Sound and Vision", "Heroes"}, titles(page.Data))

	page, err = svc.List(ctx, SongQuery{Page: 5})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 3, page.Total)
}

func TestSongQuery_Params(t *testing.T) {
	p := SongQuery{}.Params()
	assert.Equal(t, "createdAt", p.SortField)
	assert.True(t, p.Descending())
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)

	p = SongQuery{SortField: "bogus", SortOrder: "asc"}.Params()
	assert.Equal(t, "createdAt", p.SortField)
	assert.False(t, p.Descending())
}

func TestSongService_UpdateMergesOnlyGivenFields(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	songs := seedScenario(t, svc)
	orig := songs[1]

	genre := "X"
	updated, err := svc.Update(context.Background(), orig.ID, domain.SongPatch{Genre: &genre})
	require.NoError(t, err)

	assert.Equal(t, "X", updated.Genre)
	assert.Equal(t, orig.Title, updated.Title)
	assert.Equal(t, orig.Artist, updated.Artist)
	assert.Equal(t, orig.Album, updated.Album)
	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(orig.UpdatedAt))
}

func TestSongService_UpdateTimestampNeverDecreases(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	songs := seedScenario(t, svc)
	orig := songs[0]

	svc.now = func() time.Time { return orig.UpdatedAt.Add(-time.Hour) }
	title := "Heroes (single)"
	updated, err := svc.Update(context.Background(), orig.ID, domain.SongPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, orig.UpdatedAt, updated.UpdatedAt)
}

func TestSongService_UpdateErrors(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	songs := seedScenario(t, svc)
	ctx := context.Background()

	_, err := svc.Update(ctx, "missing", domain.SongPatch{})
	assert.True(t, apperrors.IsError(err, apperrors.ErrSongNotFound))

	other := "someone-else"
	_, err = svc.Update(ctx, songs[0].ID, domain.SongPatch{ID: &other})
	assert.True(t, apperrors.IsError(err, apperrors.ErrValidationFailed))

	got, err := svc.Get(ctx, songs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, songs[0].ID, got.ID)
}

func TestSongService_DeleteTwice(t *testing.T) {
	svc := newSongService(memory.NewSongRepository(), nil)
	songs := seedScenario(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, songs[0].ID))
	err := svc.Delete(ctx, songs[0].ID)
	assert.True(t, apperrors.IsError(err, apperrors.ErrSongNotFound))
	assert.Equal(t, 404, apperrors.GetHTTPStatus(err))
}

func TestSongService_StoreFailure(t *testing.T) {
	repo := new(MockSongRepository)
	svc := newSongService(repo, nil)
	boom := errors.New("connection reset")

	repo.On("Get", mock.Anything, "x").Return(nil, boom)
	repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, boom)
	repo.On("Ping", mock.Anything).Return(boom)

	_, err := svc.Get(context.Background(), "x")
	assert.True(t, apperrors.IsError(err, apperrors.ErrStoreUnavailable))
	assert.ErrorIs(t, err, boom)

	_, err = svc.List(context.Background(), SongQuery{})
	assert.Equal(t, 500, apperrors.GetHTTPStatus(err))

	assert.True(t, apperrors.IsError(svc.Ping(context.Background()), apperrors.ErrStoreUnavailable))
	repo.AssertExpectations(t)
}

func TestSongService_PublishesEvents(t *testing.T) {
	pub := new(MockPublisher)
	svc := newSongService(memory.NewSongRepository(), pub)
	ctx := context.Background()

	ofType := func(typ domain.EventType) interface{} {
		return mock.MatchedBy(func(e domain.Event) bool { return e.Type == typ && e.SongID != "" && e.ID != "" })
	}
	pub.On("Publish", mock.Anything, ofType(domain.EventSongCreated)).Return(nil).Once()
	pub.On("Publish", mock.Anything, ofType(domain.EventSongUpdated)).Return(nil).Once()
	pub.On("Publish", mock.Anything, ofType(domain.EventSongDeleted)).Return(errors.New("bus down")).Once()

	song, err := svc.Create(ctx, input("a", "b", "c", "d"))
	require.NoError(t, err)

	genre := "e"
	_, err = svc.Update(ctx, song.ID, domain.SongPatch{Genre: &genre})
	require.NoError(t, err)

	// a failed publish does not fail the write
	require.NoError(t, svc.Delete(ctx, song.ID))

	pub.AssertExpectations(t)
}

func titles(songs []*domain.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.Title
	}
	return out
}
