package cleaner

import "time"

// EventKind names something that happened during a run.
type EventKind string

const (
	EventRemoved   EventKind = "removed"
	EventRetry     EventKind = "retry"
	EventAbandoned EventKind = "abandoned"
	EventPaused    EventKind = "paused"
	EventResumed   EventKind = "resumed"
	EventLoadMore  EventKind = "load_more"
	EventStopped   EventKind = "stopped"
)

// Event is emitted to Options.OnEvent as the run progresses.
type Event struct {
	Time    time.Time `json:"time" yaml:"time"`
	Kind    EventKind `json:"kind" yaml:"kind"`
	Attempt int       `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Detail  string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}
