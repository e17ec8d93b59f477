package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure   ActivityEventType = "auth.login.failure"
	ActivityEventUserRegistered ActivityEventType = "user.registered"
)

// ActorRef identifies who triggered an activity event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
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

// LoggerActivitySink writes every event to a Logger at info level
type LoggerActivitySink struct {
	logger Logger
}

// NewLoggerActivitySink returns a sink that logs events
func NewLoggerActivitySink(logger Logger) *LoggerActivitySink {
	return &LoggerActivitySink{logger: normalizeLogger(logger)}
}

func (s *LoggerActivitySink) Record(_ context.Context, event ActivityEvent) error {
	args := []any{
		"event", string(event.EventType),
		"actor_type", event.Actor.Type,
		"user_id", event.UserID,
		"occurred_at", event.OccurredAt,
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	s.logger.Info("auth activity", args...)
	return nil
}
