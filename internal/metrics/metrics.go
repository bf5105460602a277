// Package metrics has the client metrics recorder abstraction.
package metrics

import (
	"context"
	"time"
)

// Recorder records client metrics.
type Recorder interface {
	// ObserveAPIRequest records a finished API request. statusCode is 0 when
	// the request failed before a response was received.
	ObserveAPIRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	// AddActiveExecSession adds delta to the running exec sessions.
	AddActiveExecSession(ctx context.Context, tty bool, delta int)
	// ObserveExecSession records a finished exec session.
	ObserveExecSession(ctx context.Context, tty bool, duration time.Duration)
}

// Noop recorder doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) ObserveAPIRequest(_ context.Context, _, _ string, _ int, _ time.Duration) {}
func (noop) AddActiveExecSession(_ context.Context, _ bool, _ int)                   {}
func (noop) ObserveExecSession(_ context.Context, _ bool, _ time.Duration)           {}
