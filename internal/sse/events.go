// Package sse streams view changes of a client's replica over Server-Sent Events.
package sse

import (
	"time"

	"github.com/layarapp/layar-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventViewUpdated carries the full ViewState after a replica change.
	EventViewUpdated EventType = "view.updated"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ReplicaID limits delivery to streams of one replica. Empty means all.
	ReplicaID string `json:"-"`
}

// ViewEventData is the payload of view.updated.
type ViewEventData struct {
	View domain.ViewState `json:"view"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// ConnectedEventData is the payload of the connected event.
type ConnectedEventData struct {
	StreamID string           `json:"stream_id"`
	View     domain.ViewState `json:"view"`
}

// NewViewUpdatedEvent creates a view.updated event for one replica.
func NewViewUpdatedEvent(replicaID string, view domain.ViewState) Event {
	return Event{
		Type:      EventViewUpdated,
		Timestamp: time.Now(),
		Data:      ViewEventData{View: view},
		ReplicaID: replicaID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
