// Package events carries catalog events over Redis pub/sub and fans them
// out to websocket listeners.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel catalog events are published on.
const DefaultChannel = "songs:events"

// Publisher publishes catalog events to a Redis channel.
type Publisher struct {
	redis   *redis.Client
	channel string
	log     logger.Logger
	stats   PublisherStats
}

// PublisherStats counts publish outcomes.
type PublisherStats struct {
	TotalPublished  int64 `json:"total_published"`
	FailedPublished int64 `json:"failed_published"`
}

// NewPublisher creates a publisher. An empty channel selects DefaultChannel.
func NewPublisher(rdb *redis.Client, channel string, log logger.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{redis: rdb, channel: channel, log: log}
}

// Publish marshals event as JSON and publishes it.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	atomic.AddInt64(&p.stats.TotalPublished, 1)
	p.log.Debug("published catalog event",
		logger.String("type", string(event.Type)),
		logger.String("event_id", event.ID),
		logger.String("channel", p.channel),
	)
	return nil
}

// GetStats returns a snapshot of the counters.
func (p *Publisher) GetStats() PublisherStats {
	return PublisherStats{
		TotalPublished:  atomic.LoadInt64(&p.stats.TotalPublished),
		FailedPublished: atomic.LoadInt64(&p.stats.FailedPublished),
	}
}

// Channel returns the channel name.
func (p *Publisher) Channel() string { return p.channel }
