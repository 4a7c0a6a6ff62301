// Package telemetry defines the client-side event surface: lifecycle events
// (bootstrap outcomes, logins, logouts) emitted best-effort so the client
// never blocks or fails because of observability.
package telemetry

import (
	"context"
	"time"
)

// Event is a client lifecycle event.
type Event struct {
	EventType string
	DeviceID  string
	UserID    string
	Source    string
	Metadata  map[string]string
	CreatedAt time.Time
}

// EventEmitter emits lifecycle events (e.g. to OTel Logs). Best-effort;
// callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
