package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-authflow"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// MetadataKeyFromState stores the state the resolver left.
	MetadataKeyFromState = "from_state"
	// MetadataKeyToState stores the state the resolver settled on or navigated to.
	MetadataKeyToState = "to_state"
	// MetadataKeyPath stores the location path the event refers to.
	MetadataKeyPath = "path"
	// MetadataKeyError stores the error message attached to the event.
	MetadataKeyError = "error"
	// MetadataKeyErrorCode stores the text code of rich errors.
	MetadataKeyErrorCode = "error_code"
)

const (
	defaultChannel    = "authflow"
	defaultObjectType = "visitor"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(authflow.ActivityEvent) string
}

// Normalize converts an authflow.ActivityEvent into a generic normalized shape.
func Normalize(event authflow.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: strings.TrimSpace(options.objectType),
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// Sink returns an ActivitySink that normalizes events before handing them to fn.
func Sink(fn func(Normalized) error, opts ...Option) authflow.ActivitySink {
	return authflow.ActivitySinkFunc(func(_ context.Context, event authflow.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(authflow.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor-id used for visitors without a user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(event authflow.ActivityEvent, resolver func(authflow.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event authflow.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if event.FromState != "" {
		set(MetadataKeyFromState, string(event.FromState))
	}
	if event.ToState != "" {
		set(MetadataKeyToState, string(event.ToState))
	}
	if path := strings.TrimSpace(event.Path); path != "" {
		set(MetadataKeyPath, path)
	}

	if event.Err != nil {
		var richErr *goerrors.Error
		if goerrors.As(event.Err, &richErr) {
			set(MetadataKeyError, richErr.Message)
			if richErr.TextCode != "" {
				set(MetadataKeyErrorCode, richErr.TextCode)
			}
		} else {
			set(MetadataKeyError, event.Err.Error())
		}
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
