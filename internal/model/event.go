package model

import "time"

// Stream event types.
const (
	EventTypeInfo     = "info"
	EventTypeError    = "error"
	EventTypeComplete = "complete"
	EventTypeSignal   = "signal"
	EventTypeExited   = "exited"
)

// StreamEvent is a single event of a streamed (NDJSON) API operation like
// checkpoint creation, restore or exec kill.
type StreamEvent struct {
	Type     string
	Data     string
	Error    string
	Signal   string
	PID      int
	ExitCode *int
	Time     *time.Time
}

// IsError returns true if the event reports a failure of the streamed operation.
func (e StreamEvent) IsError() bool {
	return e.Type == EventTypeError
}
