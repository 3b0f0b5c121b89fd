package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStatsSource is a mock implementation of StatsSource
type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) GetStats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	return m.Called(ctx, event).Error(0)
}

func TestRunDigestNow_PublishesDigest(t *testing.T) {
	src := new(MockStatsSource)
	pub := new(MockPublisher)
	stats := &domain.Stats{TotalSongs: 3, TotalArtists: 2}

	src.On("GetStats", mock.Anything).Return(stats, nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventStatsDigest && e.Stats == stats
	})).Return(nil)

	m := NewCronManager("", src, pub, logger.Nop())
	got, err := m.RunDigestNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, stats, got)

	src.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRunDigestNow_PublishFailureIgnored(t *testing.T) {
	src := new(MockStatsSource)
	pub := new(MockPublisher)
	src.On("GetStats", mock.Anything).Return(&domain.Stats{}, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	m := NewCronManager("", src, pub, logger.Nop())
	_, err := m.RunDigestNow(context.Background())
	assert.NoError(t, err)
}

func TestRunDigestNow_StatsError(t *testing.T) {
	src := new(MockStatsSource)
	pub := new(MockPublisher)
	src.On("GetStats", mock.Anything).Return(nil, errors.New("store down"))

	m := NewCronManager("", src, pub, logger.Nop())
	_, err := m.RunDigestNow(context.Background())
	assert.Error(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCronManager_StartStop(t *testing.T) {
	m := NewCronManager("*/5 * * * *", new(MockStatsSource), nil, logger.Nop())
	require.NoError(t, m.Start())
	assert.Len(t, m.cron.Entries(), 1)
	m.Stop()
}

func TestCronManager_InvalidSpec(t *testing.T) {
	m := NewCronManager("not a spec", new(MockStatsSource), nil, logger.Nop())
	assert.Error(t, m.Start())
}
