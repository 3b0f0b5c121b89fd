package service

import (
	"context"

	"github.com/yohanna4/song-manager/internal/domain"
)

// EventPublisher delivers catalog events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NoopPublisher drops every event. Used when the event bus is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
