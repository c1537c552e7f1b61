package verifyreset

import (
	"context"
	"time"
)

// ActivityEventType enumerates the workflow events emitted to an ActivitySink.
type ActivityEventType string

const (
	ActivityEventVerifyIssued      ActivityEventType = "account.verify.issued"
	ActivityEventVerified          ActivityEventType = "account.verify.confirmed"
	ActivityEventResetIssued       ActivityEventType = "account.password.reset_requested"
	ActivityEventPasswordReset     ActivityEventType = "account.password.reset"
	ActivityEventPasswordChanged   ActivityEventType = "account.password.changed"
	ActivityEventEmailChanged      ActivityEventType = "account.email.changed"
	ActivityEventEmailChangeStaged ActivityEventType = "account.email.change_staged"
	ActivityEventLoginSuccess      ActivityEventType = "account.login.success"
	ActivityEventLoginFailure      ActivityEventType = "account.login.failure"
)

// ActorRef identifies who triggered an event.
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

// ActivitySink consumes activity events. Sinks run best effort; errors are
// logged and never fail the workflow.
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

func userEvent(kind ActivityEventType, u *User, actorType string, now time.Time, meta map[string]any) ActivityEvent {
	id := ""
	if u != nil {
		id = u.ID.String()
	}
	return ActivityEvent{
		EventType:  kind,
		Actor:      ActorRef{ID: id, Type: actorType},
		UserID:     id,
		Metadata:   meta,
		OccurredAt: now,
	}
}
