package verifyreset

import (
	"context"
	"crypto/subtle"
	"slices"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Service runs the verification, password reset and account change
// workflows against a UserRepository.
//
// Workflows that mutate a user and then fail to notify return both the
// sanitized user and the notification error; the mutation is not undone.
type Service struct {
	repo     UserRepository
	cfg      Config
	tokens   TokenGenerator
	notifier Notifier
	activity ActivitySink
	logger   Logger
	clock    Clock
}

// NewService creates a service with sane defaults.
func NewService(repo UserRepository, cfg Config) *Service {
	cfg = cfg.withDefaults()
	cfg.IdentityFields = normalizeFields(cfg.IdentityFields)
	cfg.UniqueFields = normalizeFields(cfg.UniqueFields)
	return &Service{
		repo:     repo,
		cfg:      cfg,
		tokens:   NewRandomTokens(cfg),
		notifier: cfg.Notifier,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the notifier called after each workflow.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithLogger overrides the logger used by the service.
func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink sets the sink used to emit workflow events.
func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithTokenGenerator overrides the token generator.
func (s *Service) WithTokenGenerator(g TokenGenerator) *Service {
	if g != nil {
		s.tokens = g
	}
	return s
}

// WithClock overrides the time source used for expiry.
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// WithSanitizer overrides the client sanitizer.
func (s *Service) WithSanitizer(fn func(*User) *User) *Service {
	if fn != nil {
		s.cfg.SanitizeUser = fn
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) findUsers(ctx context.Context, q Query) ([]*User, error) {
	res, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, internalError(err, "failed to find user")
	}
	return usersFrom(res), nil
}

// findOne resolves exactly one user. A miss returns notFound.
func (s *Service) findOne(ctx context.Context, q Query, notFound error) (*User, error) {
	users, err := s.findUsers(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, notFound
	case 1:
		return users[0], nil
	default:
		return nil, ErrAmbiguousUser
	}
}

// identityQuery checks ident against allowed and normalizes it into a
// Query. Fields outside the allow-list fail even when they would resolve
// a user.
func identityQuery(ident map[string]any, allowed []string) (Query, error) {
	q := Query{}
	for k, v := range ident {
		col := NormalizeField(k)
		if !slices.Contains(allowed, col) {
			return nil, goerrors.New("identity field is not allowed: "+k, goerrors.CategoryValidation).
				WithTextCode(TextCodeIdentityNotAllowed).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"field": k})
		}
		if isEmptyValue(v) {
			continue
		}
		q[col] = v
	}
	if len(q) == 0 {
		return nil, ErrIdentityRequired
	}
	return q, nil
}

func (s *Service) identifyUser(ctx context.Context, ident map[string]any) (*User, error) {
	q, err := identityQuery(ident, s.cfg.IdentityFields)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, q, ErrUserNotFound)
}

func (s *Service) reload(ctx context.Context, authUser *User) (*User, error) {
	if authUser == nil || authUser.ID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	user, err := s.repo.Get(ctx, authUser.ID)
	if err != nil {
		return nil, internalError(err, "failed to load user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) patch(ctx context.Context, id uuid.UUID, p Patch) (*User, error) {
	p[FieldUpdatedAt] = timePtr(s.clock.now())
	user, err := s.repo.Patch(ctx, id, p)
	if err != nil {
		return nil, internalError(err, "failed to update user")
	}
	return user, nil
}

// notify calls the notifier with the password stripped. Failures are
// logged and returned, the caller keeps the applied mutation.
func (s *Service) notify(ctx context.Context, action string, user *User, opts map[string]any, newEmail string) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, action, SanitizeUserForNotifier(user), opts, newEmail); err != nil {
		s.logger.Error("notifier failed", "action", action, "user", user.ID.String(), "error", err)
		return notificationError(err, action)
	}
	return nil
}

func (s *Service) record(ctx context.Context, kind ActivityEventType, user *User, meta map[string]any) {
	event := userEvent(kind, user, "user", s.clock.now(), meta)
	if err := normalizeActivitySink(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error", "event", string(kind), "error", err)
	}
}

func (s *Service) sanitize(u *User) *User {
	return s.cfg.SanitizeUser(u)
}

// finish notifies, records the event and returns the sanitized user.
func (s *Service) finish(ctx context.Context, action string, kind ActivityEventType, user *User, opts map[string]any, newEmail string) (*User, error) {
	s.record(ctx, kind, user, map[string]any{"action": action})
	out := s.sanitize(user)
	if err := s.notify(ctx, action, user, opts, newEmail); err != nil {
		return out, err
	}
	return out, nil
}

func cancelled(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+op)
	default:
		return nil
	}
}

func tokensEqual(stored *string, supplied string) bool {
	if stored == nil || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) == 1
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// hasStagedChanges reports whether a verified user still has an email
// change waiting on verification.
func hasStagedChanges(u *User) bool {
	return len(u.VerifyChanges) > 0
}

func alreadyVerified(u *User) bool {
	return u.IsVerified && !hasStagedChanges(u)
}
