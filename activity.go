package authflow

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventTokenLoaded         ActivityEventType = "authflow.token.loaded"
	ActivityEventTokenStored         ActivityEventType = "authflow.token.stored"
	ActivityEventTokenEvicted        ActivityEventType = "authflow.token.evicted"
	ActivityEventUserLoaded          ActivityEventType = "authflow.user.loaded"
	ActivityEventRegistrationLoaded  ActivityEventType = "authflow.registration.loaded"
	ActivityEventFetchFailed         ActivityEventType = "authflow.fetch.failed"
	ActivityEventStoreFailed         ActivityEventType = "authflow.store.failed"
	ActivityEventStateResolved       ActivityEventType = "authflow.state.resolved"
	ActivityEventNavigationRequested ActivityEventType = "authflow.navigation.requested"
	ActivityEventNavigationFailed    ActivityEventType = "authflow.navigation.failed"
)

// Token sources reported in ActivityEvent.Metadata["source"]
const (
	TokenSourceLocation = "location"
	TokenSourceStore    = "store"
	TokenSourceMemory   = "memory"
	TokenSourceNone     = "none"
)

// ActivityEvent captures audit-friendly information about a resolver step.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	FromState  ApplicationState
	ToState    ApplicationState
	Path       string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
