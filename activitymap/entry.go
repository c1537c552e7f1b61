package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	verifyreset "github.com/goliatone/go-verify-reset"
)

const (
	// MetadataKeyActorType carries ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyAction carries the notifier action that produced the event.
	MetadataKeyAction = "action"
)

const (
	defaultChannel = "verify-reset"
	anonymousActor = "anonymous"
)

// Entry is a flat audit record built from a verifyreset.ActivityEvent.
type Entry struct {
	Actor    string         `json:"actor"`
	Verb     string         `json:"verb"`
	Subject  string         `json:"subject,omitempty"`
	Channel  string         `json:"channel"`
	Metadata map[string]any `json:"metadata,omitempty"`
	At       time.Time      `json:"at"`
}

// Option customizes FromEvent.
type Option func(*Entry)

// WithChannel overrides the channel name.
func WithChannel(channel string) Option {
	return func(e *Entry) {
		if channel = strings.TrimSpace(channel); channel != "" {
			e.Channel = channel
		}
	}
}

// FromEvent flattens event. Login failures carry no user, their actor is
// reported as anonymous.
func FromEvent(event verifyreset.ActivityEvent, opts ...Option) Entry {
	entry := Entry{
		Actor:   firstNonEmpty(event.Actor.ID, event.UserID, anonymousActor),
		Verb:    string(event.EventType),
		Subject: strings.TrimSpace(event.UserID),
		Channel: defaultChannel,
		At:      event.OccurredAt,
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	if len(event.Metadata) > 0 || event.Actor.Type != "" {
		entry.Metadata = make(map[string]any, len(event.Metadata)+1)
		for k, v := range event.Metadata {
			entry.Metadata[k] = v
		}
		if t := strings.TrimSpace(event.Actor.Type); t != "" {
			if _, ok := entry.Metadata[MetadataKeyActorType]; !ok {
				entry.Metadata[MetadataKeyActorType] = t
			}
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&entry)
		}
	}
	return entry
}

// LogSink writes each event as a JSON entry to a logger.
type LogSink struct {
	logger verifyreset.Logger
	opts   []Option
}

var _ verifyreset.ActivitySink = (*LogSink)(nil)

func NewLogSink(logger verifyreset.Logger, opts ...Option) *LogSink {
	return &LogSink{logger: logger, opts: opts}
}

func (s *LogSink) Record(_ context.Context, event verifyreset.ActivityEvent) error {
	entry := FromEvent(event, s.opts...)
	s.logger.Info("activity", "verb", entry.Verb, "entry", print.MaybePrettyJSON(entry))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
