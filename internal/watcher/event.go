package watcher

import "time"

// EventType represents the type of file system event
type EventType int

const (
	// EventChanged is emitted when a watched file was written or replaced and has settled
	EventChanged EventType = iota
	// EventRemoved is emitted when a watched file disappears
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a settled change to a watched file
type Event struct {
	Type EventType

	// Path is the cleaned path of the watched file
	Path string

	// Size and ModTime are zero for removals
	Size    int64
	ModTime time.Time
}
