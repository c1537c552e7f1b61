package notify

import (
	"context"

	"github.com/goliatone/go-errors"
	verifyreset "github.com/goliatone/go-verify-reset"
)

// TransportOption is the notifierOptions key that selects a transport.
const TransportOption = "transport"

// Router forwards each notification to the notifier registered for
// notifierOptions["transport"], or to the fallback.
type Router struct {
	routes   map[string]verifyreset.Notifier
	fallback string
}

var _ verifyreset.Notifier = (*Router)(nil)

// NewRouter creates a router that uses fallback when no transport is set.
func NewRouter(fallback string) *Router {
	return &Router{
		routes:   map[string]verifyreset.Notifier{},
		fallback: fallback,
	}
}

// Handle registers n under name.
func (r *Router) Handle(name string, n verifyreset.Notifier) *Router {
	r.routes[name] = n
	return r
}

func (r *Router) Notify(ctx context.Context, action string, user *verifyreset.User, opts map[string]any, newEmail string) error {
	name := r.fallback
	if t, ok := opts[TransportOption].(string); ok && t != "" {
		name = t
	}

	n, ok := r.routes[name]
	if !ok {
		return errors.New("unknown notification transport: "+name, errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"transport": name})
	}
	return n.Notify(ctx, action, user, opts, newEmail)
}
