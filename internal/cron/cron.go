package cron

import (
	"context"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// StatsSource computes the statistics snapshot.
type StatsSource interface {
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// Publisher delivers the digest event.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// DefaultDigestSpec runs the digest at the top of every hour.
const DefaultDigestSpec = "0 * * * *"

const digestTimeout = 2 * time.Minute

// CronManager runs the scheduled statistics digest: it computes a snapshot,
// logs the headline totals and publishes a stats.digest event.
type CronManager struct {
	cron      *cron.Cron
	spec      string
	stats     StatsSource
	publisher Publisher
	log       logger.Logger
}

// NewCronManager creates the manager. An empty spec selects
// DefaultDigestSpec.
func NewCronManager(spec string, stats StatsSource, publisher Publisher, log logger.Logger) *CronManager {
	if spec == "" {
		spec = DefaultDigestSpec
	}
	return &CronManager{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		spec:      spec,
		stats:     stats,
		publisher: publisher,
		log:       log.WithFields(logger.String("component", "cron")),
	}
}

// Start schedules the digest and starts the scheduler.
func (m *CronManager) Start() error {
	_, err := m.cron.AddFunc(m.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()

		if _, err := m.RunDigestNow(ctx); err != nil {
			m.log.Error("stats digest failed", logger.Error(err))
		}
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	m.log.Info("cron manager started", logger.String("digest_spec", m.spec))
	return nil
}

// Stop stops the scheduler and waits for a running digest to finish.
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron manager stopped")
}

// RunDigestNow runs the digest immediately.
func (m *CronManager) RunDigestNow(ctx context.Context) (*domain.Stats, error) {
	start := time.Now()

	stats, err := m.stats.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	m.log.Info("stats digest",
		logger.Int("total_songs", stats.TotalSongs),
		logger.Int("total_artists", stats.TotalArtists),
		logger.Int("total_albums", stats.TotalAlbums),
		logger.Int("total_genres", stats.TotalGenres),
		logger.Duration("took", time.Since(start)),
	)

	if m.publisher != nil {
		event := domain.Event{
			ID:         uuid.New().String(),
			Type:       domain.EventStatsDigest,
			Stats:      stats,
			OccurredAt: time.Now().UTC(),
		}
		if err := m.publisher.Publish(ctx, event); err != nil {
			m.log.Warn("failed to publish stats digest", logger.Error(err))
		}
	}
	return stats, nil
}
