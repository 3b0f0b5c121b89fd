package domain

import "time"

// EventType names a catalog event.
type EventType string

const (
	EventSongCreated EventType = "song.created"
	EventSongUpdated EventType = "song.updated"
	EventSongDeleted EventType = "song.deleted"
	EventStatsDigest EventType = "stats.digest"
)

// Event is published on the catalog event bus after a successful write, and
// by the scheduled statistics digest.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SongID     string    `json:"songId,omitempty"`
	Song       *Song     `json:"song,omitempty"`
	Stats      *Stats    `json:"stats,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
