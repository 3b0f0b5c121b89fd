package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Handler receives decoded events together with their raw payload.
type Handler func(event domain.Event, raw []byte)

// SubscriberConfig configures reconnect behaviour.
type SubscriberConfig struct {
	Channel              string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int // 0 retries forever
}

// DefaultSubscriberConfig returns the defaults for channel.
func DefaultSubscriberConfig(channel string) SubscriberConfig {
	return SubscriberConfig{
		Channel:           channel,
		ReconnectInterval: 5 * time.Second,
	}
}

// SubscriberStats counts received messages.
type SubscriberStats struct {
	TotalReceived  int64 `json:"total_received"`
	FailedMessages int64 `json:"failed_messages"`
	ReconnectCount int64 `json:"reconnect_count"`
}

// Subscriber listens on the catalog channel and hands events to a Handler,
// resubscribing when the connection drops.
type Subscriber struct {
	redis   *redis.Client
	cfg     SubscriberConfig
	handler Handler
	log     logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	stats  SubscriberStats
}

// NewSubscriber creates a subscriber.
func NewSubscriber(rdb *redis.Client, cfg SubscriberConfig, handler Handler, log logger.Logger) *Subscriber {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	return &Subscriber{redis: rdb, cfg: cfg, handler: handler, log: log}
}

// Start subscribes in the background until ctx is done or Stop is called.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.handler == nil {
		return errors.New("no handler registered")
	}
	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.subscribeLoop(subCtx)
	return nil
}

// Stop cancels the subscription and waits for the loop to exit.
func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Subscriber) subscribeLoop(ctx context.Context) {
	defer s.wg.Done()

	attempts := 0
	for {
		ps := s.redis.Subscribe(ctx, s.cfg.Channel)
		if _, err := ps.Receive(ctx); err != nil {
			s.log.Warn("subscribe failed", logger.String("channel", s.cfg.Channel), logger.Error(err))
		} else {
			attempts = 0
			s.log.Info("subscribed to catalog events", logger.String("channel", s.cfg.Channel))
			s.processMessages(ctx, ps)
		}
		_ = ps.Close()

		if ctx.Err() != nil {
			return
		}

		attempts++
		if s.cfg.MaxReconnectAttempts > 0 && attempts > s.cfg.MaxReconnectAttempts {
			s.log.Error("max reconnect attempts reached, subscriber stopped",
				logger.Int("attempts", s.cfg.MaxReconnectAttempts))
			return
		}
		atomic.AddInt64(&s.stats.ReconnectCount, 1)

		timer := time.NewTimer(s.cfg.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Subscriber) processMessages(ctx context.Context, ps *redis.PubSub) {
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			atomic.AddInt64(&s.stats.TotalReceived, 1)

			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				atomic.AddInt64(&s.stats.FailedMessages, 1)
				s.log.Warn("dropping malformed catalog event", logger.Error(err))
				continue
			}
			s.handler(event, []byte(msg.Payload))
		}
	}
}

// GetStats returns a snapshot of the counters.
func (s *Subscriber) GetStats() SubscriberStats {
	return SubscriberStats{
		TotalReceived:  atomic.LoadInt64(&s.stats.TotalReceived),
		FailedMessages: atomic.LoadInt64(&s.stats.FailedMessages),
		ReconnectCount: atomic.LoadInt64(&s.stats.ReconnectCount),
	}
}
